// Package memory provides an in-memory implementation of the key-value store
// contract for unit tests and local development. Items round-trip through the
// same attributevalue marshaling as the DynamoDB store so encoding bugs
// surface in tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"milestones-backend/infrastructure/persistence/abstractions"
	appErrors "milestones-backend/pkg/errors"
)

// Store implements abstractions.Store backed by a map.
type Store struct {
	mu    sync.RWMutex
	items map[abstractions.Key]map[string]types.AttributeValue

	// Optional per-method errors for testing failure paths.
	failOn map[string]error
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		items:  make(map[abstractions.Key]map[string]types.AttributeValue),
		failOn: make(map[string]error),
	}
}

var _ abstractions.Store = (*Store)(nil)

// SetError makes the named method return err on every call until cleared.
func (s *Store) SetError(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failOn, method)
		return
	}
	s.failOn[method] = err
}

// Len reports the number of stored rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) Put(ctx context.Context, item any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOn["Put"]; err != nil {
		return err
	}

	key, av, err := marshalKeyed(item)
	if err != nil {
		return err
	}
	s.items[key] = av
	return nil
}

func (s *Store) PutNew(ctx context.Context, item any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOn["PutNew"]; err != nil {
		return err
	}

	key, av, err := marshalKeyed(item)
	if err != nil {
		return err
	}
	if _, exists := s.items[key]; exists {
		return appErrors.NewInternal("item already exists", nil)
	}
	s.items[key] = av
	return nil
}

func (s *Store) Get(ctx context.Context, pk, sk string, out any) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failOn["Get"]; err != nil {
		return false, err
	}

	av, ok := s.items[abstractions.Key{PK: pk, SK: sk}]
	if !ok {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(av, out); err != nil {
		return false, appErrors.NewInternal("failed to unmarshal item", err)
	}
	return true, nil
}

// Query returns matching rows in ascending sort-key order, the same native
// ordering DynamoDB provides within a partition.
func (s *Store) Query(ctx context.Context, pk, skPrefix string, out any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failOn["Query"]; err != nil {
		return err
	}

	var keys []abstractions.Key
	for key := range s.items {
		if key.PK == pk && strings.HasPrefix(key.SK, skPrefix) {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].SK < keys[j].SK })

	items := make([]map[string]types.AttributeValue, 0, len(keys))
	for _, key := range keys {
		items = append(items, s.items[key])
	}
	if err := attributevalue.UnmarshalListOfMaps(items, out); err != nil {
		return appErrors.NewInternal("failed to unmarshal query results", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, pk, sk string, fields map[string]any, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOn["Update"]; err != nil {
		return err
	}

	key := abstractions.Key{PK: pk, SK: sk}
	existing, ok := s.items[key]
	if !ok {
		return appErrors.NewNotFound("item does not exist")
	}

	merged := make(map[string]types.AttributeValue, len(existing)+len(fields))
	for name, value := range existing {
		merged[name] = value
	}
	for name, value := range fields {
		av, err := attributevalue.Marshal(value)
		if err != nil {
			return appErrors.NewInternal("failed to marshal field", err)
		}
		merged[name] = av
	}
	s.items[key] = merged

	if out != nil {
		if err := attributevalue.UnmarshalMap(merged, out); err != nil {
			return appErrors.NewInternal("failed to unmarshal updated item", err)
		}
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, pk, sk string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOn["Delete"]; err != nil {
		return err
	}

	delete(s.items, abstractions.Key{PK: pk, SK: sk})
	return nil
}

func (s *Store) BatchDelete(ctx context.Context, keys []abstractions.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOn["BatchDelete"]; err != nil {
		return err
	}

	for _, key := range keys {
		delete(s.items, key)
	}
	return nil
}

func marshalKeyed(item any) (abstractions.Key, map[string]types.AttributeValue, error) {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return abstractions.Key{}, nil, appErrors.NewInternal("failed to marshal item", err)
	}

	pk, ok := av["PK"].(*types.AttributeValueMemberS)
	if !ok {
		return abstractions.Key{}, nil, appErrors.NewInternal("item has no string PK attribute", nil)
	}
	sk, ok := av["SK"].(*types.AttributeValueMemberS)
	if !ok {
		return abstractions.Key{}, nil, appErrors.NewInternal("item has no string SK attribute", nil)
	}
	return abstractions.Key{PK: pk.Value, SK: sk.Value}, av, nil
}
