package reconcile

import (
	"github.com/gbl08ma/sqalx"
	"github.com/underlx/servicealerts/types"
)

// Store loads and persists the collections handled by the reconciliation engine
type Store interface {
	GetDisruptions() ([]types.Disruption, error)
	GetInbox() ([]types.ExternalDisruptionInInbox, error)
	GetRejected() ([]types.RejectedExternalDisruption, error)
	// Commit persists the actions of the three transactions atomically
	Commit(c Collections) error
}

// LoadCollections reads the current state of the store into new Transactions
func LoadCollections(store Store) (Collections, error) {
	disruptions, err := store.GetDisruptions()
	if err != nil {
		return Collections{}, err
	}
	inbox, err := store.GetInbox()
	if err != nil {
		return Collections{}, err
	}
	rejected, err := store.GetRejected()
	if err != nil {
		return Collections{}, err
	}
	return NewCollections(disruptions, inbox, rejected)
}

// SQLStore is a Store backed by the PostgreSQL tables in the types package
type SQLStore struct {
	node sqalx.Node
}

// NewSQLStore returns a new SQLStore
func NewSQLStore(node sqalx.Node) *SQLStore {
	return &SQLStore{node: node}
}

// GetDisruptions implements Store
func (s *SQLStore) GetDisruptions() ([]types.Disruption, error) {
	return types.GetDisruptions(s.node)
}

// GetInbox implements Store
func (s *SQLStore) GetInbox() ([]types.ExternalDisruptionInInbox, error) {
	return types.GetInbox(s.node)
}

// GetRejected implements Store
func (s *SQLStore) GetRejected() ([]types.RejectedExternalDisruption, error) {
	return types.GetRejected(s.node)
}

// Commit implements Store
func (s *SQLStore) Commit(c Collections) error {
	tx, err := s.node.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = types.CommitDisruptions(tx, c.Disruptions.Actions())
	if err != nil {
		return err
	}
	err = types.CommitInbox(tx, c.Inbox.Actions())
	if err != nil {
		return err
	}
	err = types.CommitRejected(tx, c.Rejected.Actions())
	if err != nil {
		return err
	}
	return tx.Commit()
}
