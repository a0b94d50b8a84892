// Package database provides PostgreSQL connection pool management for the
// session journal. The relay itself keeps no state in the database.
package database
