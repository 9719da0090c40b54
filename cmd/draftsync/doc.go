// Command draftsync simulates course wizard sessions against a draft store
// and inspects or publishes stored drafts.
//
//	draftsync simulate testdata/wizard.yaml --json
//	draftsync --store sqlite --db drafts.db show <id> --format draft
//	draftsync --store sqlite --db drafts.db publish <id> --status published
package main
