// Package database provides the PostgreSQL connection pool used by the
// session journal.
//
// The relay keeps one optional pool. When the journal is disabled no
// connection is opened and the relay runs without any database.
package database
