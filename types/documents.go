package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gbl08ma/sqalx"
	"github.com/lib/pq"
	"github.com/underlx/servicealerts/transaction"
)

var sdb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	disruptionTable = "disruption"
	inboxTable      = "disruption_inbox"
	rejectedTable   = "disruption_rejected"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS disruption (
		id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		document JSONB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS disruption_inbox (
		id TEXT PRIMARY KEY,
		document JSONB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS disruption_rejected (
		id TEXT PRIMARY KEY,
		scheduled_deletion TIMESTAMP WITH TIME ZONE,
		document JSONB NOT NULL
	)`,
}

// ErrDocumentNotFound is returned when a document to replace or delete does not exist
var ErrDocumentNotFound = errors.New("document not found")

// CreateSchema creates the tables used to store disruptions, if they don't exist
func CreateSchema(node sqalx.Node) error {
	tx, err := node.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, statement := range schema {
		_, err = tx.Exec(statement)
		if err != nil {
			return fmt.Errorf("CreateSchema: %s", err)
		}
	}
	return tx.Commit()
}

func getDocumentsWithSelect[T any](node sqalx.Node, table string, sbuilder sq.SelectBuilder) ([]T, error) {
	documents := []T{}

	tx, err := node.Beginx()
	if err != nil {
		return documents, err
	}
	defer tx.Commit() // read-only tx

	rows, err := sbuilder.Columns("document").
		From(table).
		OrderBy("id ASC").
		RunWith(tx).Query()
	if err != nil {
		return documents, fmt.Errorf("getDocumentsWithSelect(%s): %s", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw []byte
		err := rows.Scan(&raw)
		if err != nil {
			return documents, fmt.Errorf("getDocumentsWithSelect(%s): %s", table, err)
		}
		var document T
		err = json.Unmarshal(raw, &document)
		if err != nil {
			return documents, fmt.Errorf("getDocumentsWithSelect(%s): %s", table, err)
		}
		documents = append(documents, document)
	}
	if err := rows.Err(); err != nil {
		return documents, fmt.Errorf("getDocumentsWithSelect(%s): %s", table, err)
	}
	return documents, nil
}

func insertDocument(node sqalx.Node, table, id string, document interface{}, columns map[string]interface{}) error {
	raw, err := json.Marshal(document)
	if err != nil {
		return err
	}
	values := map[string]interface{}{
		"id":       id,
		"document": string(raw),
	}
	for k, v := range columns {
		values[k] = v
	}
	_, err = sdb.Insert(table).SetMap(values).RunWith(node).Exec()
	if err != nil {
		return fmt.Errorf("insertDocument(%s): %s", table, err)
	}
	return nil
}

func replaceDocument(node sqalx.Node, table, id string, document interface{}, columns map[string]interface{}) error {
	raw, err := json.Marshal(document)
	if err != nil {
		return err
	}
	values := map[string]interface{}{
		"document": string(raw),
	}
	for k, v := range columns {
		values[k] = v
	}
	result, err := sdb.Update(table).SetMap(values).
		Where(sq.Eq{"id": id}).
		RunWith(node).Exec()
	if err != nil {
		return fmt.Errorf("replaceDocument(%s): %s", table, err)
	}
	return checkAffected(result, table, id)
}

func deleteDocument(node sqalx.Node, table, id string) error {
	result, err := sdb.Delete(table).
		Where(sq.Eq{"id": id}).
		RunWith(node).Exec()
	if err != nil {
		return fmt.Errorf("deleteDocument(%s): %s", table, err)
	}
	return checkAffected(result, table, id)
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func checkAffected(result rowsAffecter, table, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", table, id, ErrDocumentNotFound)
	}
	return nil
}

// GetDisruptions returns a slice with all stored disruptions
func GetDisruptions(node sqalx.Node) ([]Disruption, error) {
	return getDocumentsWithSelect[Disruption](node, disruptionTable, sdb.Select())
}

// GetDisruptionsInState returns a slice with the stored disruptions in any of the given states
func GetDisruptionsInState(node sqalx.Node, states ...DisruptionState) ([]Disruption, error) {
	s := sdb.Select().
		Where(sq.Eq{"state": states})
	return getDocumentsWithSelect[Disruption](node, disruptionTable, s)
}

// GetInbox returns a slice with all the notices in the inbox
func GetInbox(node sqalx.Node) ([]ExternalDisruptionInInbox, error) {
	return getDocumentsWithSelect[ExternalDisruptionInInbox](node, inboxTable, sdb.Select())
}

// GetRejected returns a slice with all rejected notices
func GetRejected(node sqalx.Node) ([]RejectedExternalDisruption, error) {
	return getDocumentsWithSelect[RejectedExternalDisruption](node, rejectedTable, sdb.Select())
}

// GetRejectedScheduledBefore returns the rejected notices scheduled for deletion before t
func GetRejectedScheduledBefore(node sqalx.Node, t time.Time) ([]RejectedExternalDisruption, error) {
	s := sdb.Select().
		Where(sq.Lt{"scheduled_deletion": t})
	return getDocumentsWithSelect[RejectedExternalDisruption](node, rejectedTable, s)
}

// CommitDisruptions persists the actions computed by a disruption Transaction
func CommitDisruptions(node sqalx.Node, actions transaction.Actions[Disruption, string]) error {
	tx, err := node.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, d := range actions.Add {
		if err := d.Validate(); err != nil {
			return err
		}
		err = insertDocument(tx, disruptionTable, d.ID, d, map[string]interface{}{"state": d.State})
		if err != nil {
			return fmt.Errorf("CommitDisruptions: %w", err)
		}
	}
	for _, d := range actions.Update {
		if err := d.Validate(); err != nil {
			return err
		}
		err = replaceDocument(tx, disruptionTable, d.ID, d, map[string]interface{}{"state": d.State})
		if err != nil {
			return fmt.Errorf("CommitDisruptions: %w", err)
		}
	}
	for _, id := range actions.Delete {
		err = deleteDocument(tx, disruptionTable, id)
		if err != nil {
			return fmt.Errorf("CommitDisruptions: %w", err)
		}
	}
	return tx.Commit()
}

// CommitInbox persists the actions computed by an inbox Transaction
func CommitInbox(node sqalx.Node, actions transaction.Actions[ExternalDisruptionInInbox, ExternalDisruptionID]) error {
	tx, err := node.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range actions.Add {
		err = insertDocument(tx, inboxTable, e.Disruption.ID().Token(), e, nil)
		if err != nil {
			return fmt.Errorf("CommitInbox: %w", err)
		}
	}
	for _, e := range actions.Update {
		err = replaceDocument(tx, inboxTable, e.Disruption.ID().Token(), e, nil)
		if err != nil {
			return fmt.Errorf("CommitInbox: %w", err)
		}
	}
	for _, id := range actions.Delete {
		err = deleteDocument(tx, inboxTable, id.Token())
		if err != nil {
			return fmt.Errorf("CommitInbox: %w", err)
		}
	}
	return tx.Commit()
}

func scheduledDeletionColumn(r RejectedExternalDisruption) map[string]interface{} {
	t := pq.NullTime{}
	if r.ScheduledDeletion != nil {
		t.Time = *r.ScheduledDeletion
		t.Valid = true
	}
	return map[string]interface{}{"scheduled_deletion": t}
}

// CommitRejected persists the actions computed by a rejected notices Transaction
func CommitRejected(node sqalx.Node, actions transaction.Actions[RejectedExternalDisruption, ExternalDisruptionID]) error {
	tx, err := node.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range actions.Add {
		err = insertDocument(tx, rejectedTable, r.Disruption.ID().Token(), r, scheduledDeletionColumn(r))
		if err != nil {
			return fmt.Errorf("CommitRejected: %w", err)
		}
	}
	for _, r := range actions.Update {
		err = replaceDocument(tx, rejectedTable, r.Disruption.ID().Token(), r, scheduledDeletionColumn(r))
		if err != nil {
			return fmt.Errorf("CommitRejected: %w", err)
		}
	}
	for _, id := range actions.Delete {
		err = deleteDocument(tx, rejectedTable, id.Token())
		if err != nil {
			return fmt.Errorf("CommitRejected: %w", err)
		}
	}
	return tx.Commit()
}
