// Package export renders subscriber exports as CSV and delivers them to S3.
//
// The CSV header is fixed:
//
//	email,name,created_at,active,tier
//
// Uploaded exports are stored under exports/<organization id>/<timestamp>.csv
// and shared through a presigned GET URL.
package export
