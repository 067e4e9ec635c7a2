package library

import (
	"fmt"

	"github.com/artie-labs/starsync/lib/source"
	"github.com/artie-labs/starsync/lib/watermark"
)

// Every query selects the rows changed after the watermark, which is bound to $1.
// Dimensions are only synced once a fact refers to them.
const (
	workQuery = `
SELECT
    w.work_id,
    s.subject_id,
    w.publisher_id,
    w.title,
    w.release_year,
    w.weight
FROM work w
LEFT JOIN (
    SELECT work_id, MIN(subject_id) AS subject_id
    FROM work_subject
    GROUP BY work_id
) s USING (work_id)
WHERE w.modified_at > $1
AND (
    EXISTS (SELECT 1 FROM loan JOIN inventory_item ii USING (item_id) WHERE ii.work_id = w.work_id)
    OR EXISTS (SELECT 1 FROM rating r WHERE r.work_id = w.work_id)
    OR EXISTS (SELECT 1 FROM listing l WHERE l.work_id = w.work_id)
)`

	publisherQuery = `
SELECT
    publisher_id,
    publisher_name
FROM publisher p
WHERE p.modified_at > $1
AND (
    EXISTS (SELECT 1 FROM loan JOIN inventory_item ii USING (item_id) JOIN work w USING (work_id) WHERE w.publisher_id = p.publisher_id)
    OR EXISTS (SELECT 1 FROM rating r JOIN work w USING (work_id) WHERE w.publisher_id = p.publisher_id)
    OR EXISTS (SELECT 1 FROM listing l JOIN work w USING (work_id) WHERE w.publisher_id = p.publisher_id)
)`

	authorQuery = `
SELECT
    author_id,
    full_name AS author_name
FROM author a
WHERE a.modified_at > $1
AND (
    EXISTS (SELECT 1 FROM loan JOIN inventory_item ii USING (item_id) JOIN work_author wa USING (work_id) WHERE wa.author_id = a.author_id)
    OR EXISTS (SELECT 1 FROM rating r JOIN work_author wa USING (work_id) WHERE wa.author_id = a.author_id)
    OR EXISTS (SELECT 1 FROM listing l JOIN work_author wa USING (work_id) WHERE wa.author_id = a.author_id)
)`

	// The coefficient splits a work's facts evenly between its authors.
	workAuthorQuery = `
SELECT
    w.work_id,
    wa.author_id,
    1.0 / COUNT(*) OVER (PARTITION BY w.work_id) AS coefficient
FROM work w
JOIN work_author wa USING (work_id)
WHERE wa.added_at > $1
AND (
    EXISTS (SELECT 1 FROM loan JOIN inventory_item ii USING (item_id) WHERE ii.work_id = w.work_id)
    OR EXISTS (SELECT 1 FROM rating r WHERE r.work_id = w.work_id)
    OR EXISTS (SELECT 1 FROM listing l WHERE l.work_id = w.work_id)
)`

	subjectQuery = `
SELECT
    subject_id,
    subject_name
FROM subject
WHERE modified_at > $1`

	languageQuery = `
SELECT
    language_id,
    lang_name AS language_name,
    speakers
FROM lang
WHERE modified_at > $1`

	dateQuery = `
SELECT
    TO_CHAR(date, 'YYYY')::INTEGER AS year,
    TO_CHAR(date, 'FMMonth YYYY') AS month,
    CONCAT('Q', EXTRACT(QUARTER FROM date), ' ', TO_CHAR(date, 'YYYY')) AS quarter,
    date::date AS date,
    TO_CHAR(date, 'YYYYMMDD')::INTEGER AS date_id
FROM (
    SELECT loaned_at::date AS date FROM loan WHERE loaned_at > $1
    UNION
    SELECT rated_at::date AS date FROM rating WHERE rated_at > $1
    UNION
    SELECT listed_at::date AS date FROM listing WHERE listed_at > $1
) x`

	// Enum backed dimensions are small and always synced in full.
	mediumQuery = `
SELECT
    enumsortorder AS medium_id,
    INITCAP(REPLACE(enumlabel, '_', ' ')) AS medium_name
FROM pg_enum
WHERE enumtypid = 'item_medium_type'::regtype`

	listingTypeQuery = `
SELECT
    enumsortorder AS listing_type_id,
    INITCAP(REPLACE(enumlabel, '_', ' ')) AS listing_type_name
FROM pg_enum
WHERE enumtypid = 'reading_status_type'::regtype`

	returnFactQuery = `
SELECT DISTINCT ON (work_id, user_id, date_id)
    pages,
    items_left,
    days_loaned,
    work_age,
    reader_age,
    user_id,
    date_id,
    work_id,
    medium_id,
    language_id
FROM (
    SELECT
        work.pages,
        EXTRACT('Day' FROM returned_at - loaned_at) AS days_loaned,
        EXTRACT(YEAR FROM CURRENT_DATE) - release_year AS work_age,
        EXTRACT(YEAR FROM AGE(NOW(), birthday))::INTEGER AS reader_age,
        library_user.user_id,
        TO_CHAR(returned_at, 'YYYYMMDD')::INTEGER AS date_id,
        work.work_id,
        enumsortorder AS medium_id,
        work.language_id,
        loaned_at,
        (
            SELECT
                CASE
                    WHEN medium IN ('EBOOK', 'AUDIOBOOK') THEN 1
                    ELSE COUNT(DISTINCT ii.item_id) - COUNT(CASE WHEN loaned_at IS NULL THEN 1 END) + COUNT(returned_at) - COUNT(loaned_at)
                END AS items_left
            FROM inventory_item ii
            LEFT JOIN loan l ON l.item_id = ii.item_id AND loaned_at <= l1.loaned_at
            LEFT JOIN loan_return lr ON lr.loan_id = l.loan_id AND returned_at <= l1.loaned_at
            WHERE ii.work_id = work.work_id
        )
    FROM loan_return
    JOIN loan l1 USING (loan_id)
    JOIN inventory_item USING (item_id)
    JOIN work USING (work_id)
    JOIN library_user USING (user_id)
    JOIN pg_enum ON enumlabel = medium::text
    WHERE loaned_at > $1
) AS subquery
WHERE items_left >= 0`

	ratingFactQuery = `
SELECT DISTINCT ON (work_id, user_id)
    pages,
    score,
    EXTRACT(YEAR FROM CURRENT_DATE) - release_year AS work_age,
    EXTRACT(YEAR FROM AGE(NOW(), birthday))::INTEGER AS reader_age,
    user_id,
    TO_CHAR(rated_at, 'YYYYMMDD')::INTEGER AS date_id,
    work_id,
    language_id
FROM rating
JOIN work USING (work_id)
JOIN library_user USING (user_id)
WHERE rated_at > $1
AND birthday < rated_at`

	listingFactQuery = `
SELECT DISTINCT ON (work_id, user_id, listing_type_id)
    pages,
    EXTRACT(YEAR FROM CURRENT_DATE) - release_year AS work_age,
    EXTRACT(YEAR FROM AGE(NOW(), birthday))::INTEGER AS reader_age,
    user_id,
    TO_CHAR(listed_at, 'YYYYMMDD')::INTEGER AS date_id,
    work_id,
    language_id,
    enumsortorder AS listing_type_id
FROM listing
JOIN pg_enum ON enumlabel = reading_status::text
JOIN work USING (work_id)
JOIN library_user USING (user_id)
WHERE listed_at > $1
AND birthday < listed_at`

	userQuery = `
WITH age_calculation AS (
    SELECT
        user_id,
        EXTRACT(YEAR FROM AGE(birthday)) AS age,
        gender,
        first_name,
        last_name
    FROM library_user
    WHERE modified_at > $1
)
SELECT
    user_id,
    CASE
        WHEN age BETWEEN 0 AND 12 THEN '0-12'
        WHEN age BETWEEN 13 AND 19 THEN '13-19'
        WHEN age BETWEEN 20 AND 29 THEN '20-29'
        WHEN age BETWEEN 30 AND 39 THEN '30-39'
        WHEN age BETWEEN 40 AND 49 THEN '40-49'
        ELSE '50+'
    END AS age_group,
    CASE
        WHEN gender = 'f' THEN 'female'
        WHEN gender = 'm' THEN 'male'
        WHEN gender = 'n' THEN 'non-binary'
        ELSE gender
    END AS gender,
    first_name,
    CONCAT(first_name, ' ', last_name) AS full_name
FROM age_calculation`
)

type query struct {
	text string
	// incremental queries take the watermark as $1.
	incremental bool
}

var queries = map[string]query{
	"work":         {workQuery, true},
	"subject":      {subjectQuery, true},
	"work_author":  {workAuthorQuery, true},
	"medium":       {mediumQuery, false},
	"listing_type": {listingTypeQuery, false},
	"language":     {languageQuery, true},
	"date":         {dateQuery, true},
	"user":         {userQuery, true},
	"return_fact":  {returnFactQuery, true},
	"rating_fact":  {ratingFactQuery, true},
	"listing_fact": {listingFactQuery, true},
	"author":       {authorQuery, true},
	"publisher":    {publisherQuery, true},
}

// Queries is the [source.QuerySupplier] of the library tables, written for PostgreSQL.
type Queries struct{}

func (Queries) Query(table string, wm watermark.Watermark) (source.Query, error) {
	q, ok := queries[table]
	if !ok {
		return source.Query{}, fmt.Errorf("no extraction query for table %q", table)
	}

	if !q.incremental {
		return source.NewQuery(q.text), nil
	}
	return source.NewQuery(q.text, wm.Time()), nil
}
