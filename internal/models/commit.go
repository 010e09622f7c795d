package models

import (
	"fmt"
	"time"
)

// CommitTimeLayout is the layout used for commit timestamps in provenance strings
const CommitTimeLayout = "2006-01-02 15:04:05-07:00"

// CommitRecord describes the most recent commit touching a file
type CommitRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Author    string    `json:"author"`
	Message   string    `json:"message"`
	ShortHash string    `json:"short_hash"`
}

// String formats the record as "[<time>] <author>: <message> (hash: <short hash>)"
func (c CommitRecord) String() string {
	return fmt.Sprintf("[%s] %s: %s (hash: %s)",
		c.Timestamp.Format(CommitTimeLayout),
		c.Author,
		c.Message,
		c.ShortHash,
	)
}

// ShortHashLength is the number of hex characters kept from a commit id
const ShortHashLength = 8

// ShortenHash truncates a full commit id to ShortHashLength characters
func ShortenHash(hash string) string {
	if len(hash) <= ShortHashLength {
		return hash
	}
	return hash[:ShortHashLength]
}
