package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/artie-labs/starsync/lib/config/constants"
)

// DriverName returns the database/sql driver registered for [s.Driver].
func (s Source) DriverName() string {
	switch s.Driver {
	case constants.MySQL:
		return "mysql"
	default:
		return "pgx"
	}
}

func (s Source) DSN() string {
	switch s.Driver {
	case constants.MySQL:
		cfg := mysql.NewConfig()
		cfg.User = s.Username
		cfg.Passwd = s.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
		cfg.DBName = s.Database
		// DATE and DATETIME columns come back as [time.Time] instead of []byte.
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		return cfg.FormatDSN()
	default:
		u := &url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(s.Username, s.Password),
			Host:   net.JoinHostPort(s.Host, strconv.Itoa(s.Port)),
			Path:   s.Database,
		}
		if s.DisableSSL {
			u.RawQuery = url.Values{"sslmode": []string{"disable"}}.Encode()
		}
		return u.String()
	}
}

func (s Source) String() string {
	// Don't log credentials.
	return fmt.Sprintf("driver=%s, host=%s, port=%d, database=%s, user_set=%v, pass_set=%v",
		s.Driver, s.Host, s.Port, s.Database, s.Username != "", s.Password != "")
}

func (r Redis) Address() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}
