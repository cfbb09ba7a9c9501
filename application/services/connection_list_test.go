package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"esn-backend/application/ports"
	"esn-backend/domain/config"
	"esn-backend/domain/core/valueobjects"
	"esn-backend/domain/events"
	"esn-backend/infrastructure/persistence/memory"
	"esn-backend/infrastructure/persistence/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var ada = valueobjects.MustCustomerID("1001")

// scriptedStore wraps a memory store and lets a test intervene in Save
type scriptedStore struct {
	*memory.NetworkStore

	mu         sync.Mutex
	saves      int
	loads      int
	saveErr    error
	beforeSave func(call int)
}

func newScriptedStore() *scriptedStore {
	return &scriptedStore{NetworkStore: memory.NewNetworkStore(zap.NewNop())}
}

func (s *scriptedStore) Load(ctx context.Context, customerID valueobjects.CustomerID) (*ports.Document, error) {
	s.mu.Lock()
	s.loads++
	s.mu.Unlock()
	return s.NetworkStore.Load(ctx, customerID)
}

func (s *scriptedStore) Save(ctx context.Context, customerID valueobjects.CustomerID, value []byte, expectedVersion string) (string, error) {
	s.mu.Lock()
	s.saves++
	call := s.saves
	hook := s.beforeSave
	saveErr := s.saveErr
	s.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if saveErr != nil {
		return "", saveErr
	}
	return s.NetworkStore.Save(ctx, customerID, value, expectedVersion)
}

func newTestList(store ports.NetworkStore) *ConnectionList {
	return NewConnectionList(ada, store, schema.NewJSONCodec(nil), config.DefaultDomainConfig(), zap.NewNop())
}

func reload(t *testing.T, store ports.NetworkStore) *ConnectionList {
	t.Helper()
	list := newTestList(store)
	_, err := list.Load(context.Background())
	require.NoError(t, err)
	return list
}

func TestConnectionList_AdaScenario(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := newScriptedStore()
	list := newTestList(store)

	result, err := list.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, LoadStatusEmpty, result.Status)

	// Act
	conn, err := list.Add(ctx, AddConnectionInput{Name: "Ada", Email: "ada@x.com", RelationshipType: "friend"})
	require.NoError(t, err)

	// Assert
	snap := list.Snapshot()
	require.Len(t, snap.Nodes, 1)
	require.Len(t, snap.Edges, 1)
	assert.Equal(t, "friend", snap.Edges[0].Type)
	assert.Equal(t, ada.String(), snap.Edges[0].From)
	assert.Equal(t, conn.ID().String(), snap.Edges[0].To)

	removed, err := list.Remove(ctx, conn.ID(), nil)
	require.NoError(t, err)
	assert.True(t, removed)

	snap = list.Snapshot()
	assert.Empty(t, snap.Nodes)
	assert.Empty(t, snap.Edges)
}

func TestConnectionList_AddThenLoadRoundTrips(t *testing.T) {
	ctx := context.Background()
	store := newScriptedStore()
	list := reload(t, store)
	_, err := list.Add(ctx, AddConnectionInput{Name: "Grace", RelationshipType: "colleague"})
	require.NoError(t, err)
	before := reload(t, store).Snapshot()

	conn, err := list.Add(ctx, AddConnectionInput{Name: "Ada", Email: "ada@x.com", RelationshipType: "friend"})
	require.NoError(t, err)

	after := reload(t, store).Snapshot()
	require.Len(t, after.Nodes, len(before.Nodes)+1)
	last := after.Nodes[len(after.Nodes)-1]
	assert.Equal(t, conn.ID().String(), last.ID)
	assert.Equal(t, "Ada", last.Name)
	assert.Equal(t, "ada@x.com", last.Email)
	assert.Equal(t, "friend", last.RelationshipType)
	assert.Equal(t, len(after.Nodes), len(after.Edges))
}

func TestConnectionList_RemoveThenLoad(t *testing.T) {
	ctx := context.Background()
	store := newScriptedStore()
	list := reload(t, store)
	first, err := list.Add(ctx, AddConnectionInput{Name: "a"})
	require.NoError(t, err)
	_, err = list.Add(ctx, AddConnectionInput{Name: "b"})
	require.NoError(t, err)

	t.Run("present id", func(t *testing.T) {
		removed, err := list.Remove(ctx, first.ID(), nil)
		require.NoError(t, err)
		assert.True(t, removed)

		snap := reload(t, store).Snapshot()
		assert.Len(t, snap.Nodes, 1)
		for _, n := range snap.Nodes {
			assert.NotEqual(t, first.ID().String(), n.ID)
		}
	})

	t.Run("absent id writes nothing", func(t *testing.T) {
		savesBefore := store.saves

		removed, err := list.Remove(ctx, valueobjects.NewConnectionID(), nil)
		require.NoError(t, err)
		assert.False(t, removed)

		assert.Equal(t, savesBefore, store.saves)
		assert.Len(t, reload(t, store).Snapshot().Nodes, 1)
	})
}

func TestConnectionList_EdgesAlwaysMirrorNodes(t *testing.T) {
	ctx := context.Background()
	list := reload(t, newScriptedStore())

	var ids []valueobjects.ConnectionID
	for i := 0; i < 5; i++ {
		conn, err := list.Add(ctx, AddConnectionInput{Name: "n", RelationshipType: "friend"})
		require.NoError(t, err)
		ids = append(ids, conn.ID())
	}
	_, err := list.Remove(ctx, ids[2], nil)
	require.NoError(t, err)

	snap := list.Snapshot()
	require.Equal(t, len(snap.Nodes), len(snap.Edges))
	nodeIDs := make(map[string]bool)
	for _, n := range snap.Nodes {
		nodeIDs[n.ID] = true
	}
	for _, e := range snap.Edges {
		assert.Equal(t, ada.String(), e.From)
		assert.True(t, nodeIDs[e.To])
	}
}

func TestConnectionList_LoadMalformedDocument(t *testing.T) {
	ctx := context.Background()
	store := newScriptedStore()
	store.Put(ada, []byte("{definitely not json"))
	list := newTestList(store)

	result, err := list.Load(ctx)

	require.NoError(t, err)
	assert.Equal(t, LoadStatusRecovered, result.Status)
	assert.Error(t, result.ParseError)
	assert.Empty(t, list.Snapshot().Nodes)

	// The next write replaces the malformed document
	_, err = list.Add(ctx, AddConnectionInput{Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, LoadStatusOK, list.Status())

	again := reload(t, store)
	assert.Equal(t, LoadStatusOK, again.Status())
	assert.Len(t, again.Snapshot().Nodes, 1)
}

func TestConnectionList_LoadTransportFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	list := reload(t, newScriptedStore())
	_, err := list.Add(ctx, AddConnectionInput{Name: "Ada"})
	require.NoError(t, err)

	list.store = failingStore{err: errors.New("network down")}
	_, err = list.Load(ctx)

	require.Error(t, err)
	assert.Len(t, list.Snapshot().Nodes, 1)
}

func TestConnectionList_FailedSaveLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	store := newScriptedStore()
	list := reload(t, store)
	_, err := list.Add(ctx, AddConnectionInput{Name: "kept"})
	require.NoError(t, err)
	versionBefore := list.Version()
	_ = list.DrainEvents()

	store.saveErr = errors.New("upstream unavailable")
	_, err = list.Add(ctx, AddConnectionInput{Name: "lost"})

	require.Error(t, err)
	assert.Len(t, list.Snapshot().Nodes, 1)
	assert.Equal(t, versionBefore, list.Version())
	assert.Empty(t, list.DrainEvents())
}

func TestConnectionList_ConflictReloadsAndReapplies(t *testing.T) {
	ctx := context.Background()
	store := newScriptedStore()
	list := reload(t, store)

	// Another writer adds a connection between our load and our save
	store.beforeSave = func(call int) {
		if call == 1 {
			other := reload(t, store.NetworkStore)
			_, err := other.Add(ctx, AddConnectionInput{Name: "concurrent"})
			require.NoError(t, err)
		}
	}

	conn, err := list.Add(ctx, AddConnectionInput{Name: "mine"})

	require.NoError(t, err)
	assert.Equal(t, 2, store.saves)
	snap := reload(t, store).Snapshot()
	require.Len(t, snap.Nodes, 2)
	assert.Equal(t, "concurrent", snap.Nodes[0].Name)
	assert.Equal(t, conn.ID().String(), snap.Nodes[1].ID)
	assert.Len(t, list.DrainEvents(), 1)
}

func TestConnectionList_ExpectedVersionDisablesRetry(t *testing.T) {
	ctx := context.Background()
	store := newScriptedStore()
	list := reload(t, store)
	_, err := list.Add(ctx, AddConnectionInput{Name: "a"})
	require.NoError(t, err)

	t.Run("stale version fails before writing", func(t *testing.T) {
		stale := "not-the-current-version"
		savesBefore := store.saves

		_, err := list.Add(ctx, AddConnectionInput{Name: "b", ExpectedVersion: &stale})

		require.Error(t, err)
		assert.True(t, ports.IsVersionConflict(err))
		assert.Equal(t, savesBefore, store.saves)
	})

	t.Run("concurrent change is not retried", func(t *testing.T) {
		current := list.Version()
		store.beforeSave = func(call int) {
			other := reload(t, store.NetworkStore)
			_, err := other.Add(ctx, AddConnectionInput{Name: "concurrent"})
			require.NoError(t, err)
		}
		defer func() { store.beforeSave = nil }()
		savesBefore := store.saves

		_, err := list.Add(ctx, AddConnectionInput{Name: "c", ExpectedVersion: &current})

		require.Error(t, err)
		assert.True(t, ports.IsVersionConflict(err))
		assert.Equal(t, savesBefore+1, store.saves)
		assert.Len(t, list.Snapshot().Nodes, 1)
	})

	t.Run("matching version writes", func(t *testing.T) {
		fresh := reload(t, store)
		current := fresh.Version()

		_, err := fresh.Add(ctx, AddConnectionInput{Name: "d", ExpectedVersion: &current})

		require.NoError(t, err)
		assert.NotEqual(t, current, fresh.Version())
	})
}

func TestConnectionList_GivesUpAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	store := newScriptedStore()
	store.saveErr = ports.NewVersionConflictError(ada)
	list := reload(t, store)

	_, err := list.Add(ctx, AddConnectionInput{Name: "never"})

	require.Error(t, err)
	assert.True(t, ports.IsVersionConflict(err))
	assert.Equal(t, config.DefaultDomainConfig().MaxConflictRetries+1, store.saves)
	assert.Empty(t, list.Snapshot().Nodes)
}

func TestConnectionList_AddLoadsLazily(t *testing.T) {
	ctx := context.Background()
	store := newScriptedStore()
	seed := reload(t, store)
	_, err := seed.Add(ctx, AddConnectionInput{Name: "existing"})
	require.NoError(t, err)

	list := newTestList(store)
	_, err = list.Add(ctx, AddConnectionInput{Name: "new"})

	require.NoError(t, err)
	assert.Len(t, list.Snapshot().Nodes, 2)
}

func TestConnectionList_ConcurrentAddsAreSerialized(t *testing.T) {
	ctx := context.Background()
	store := newScriptedStore()
	list := reload(t, store)

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := list.Add(ctx, AddConnectionInput{Name: "w"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	snap := reload(t, store).Snapshot()
	assert.Len(t, snap.Nodes, writers)
	assert.Len(t, snap.Edges, writers)
	assert.Equal(t, writers, store.saves)
}

func TestConnectionList_GeneratedIDsAreUnique(t *testing.T) {
	ctx := context.Background()
	list := reload(t, newScriptedStore())

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		conn, err := list.Add(ctx, AddConnectionInput{Name: "same instant"})
		require.NoError(t, err)
		assert.True(t, conn.ID().IsUUID())
		assert.False(t, seen[conn.ID().String()])
		seen[conn.ID().String()] = true
	}
}

func TestConnectionList_DefaultsRelationshipType(t *testing.T) {
	list := reload(t, newScriptedStore())

	conn, err := list.Add(context.Background(), AddConnectionInput{Name: "", RelationshipType: "   "})

	require.NoError(t, err)
	assert.Equal(t, "friend", conn.RelationshipType().String())
	assert.Equal(t, "", conn.Name())
}

func TestConnectionList_DrainEvents(t *testing.T) {
	ctx := context.Background()
	list := reload(t, newScriptedStore())
	conn, err := list.Add(ctx, AddConnectionInput{Name: "a"})
	require.NoError(t, err)
	_, err = list.Remove(ctx, conn.ID(), nil)
	require.NoError(t, err)

	drained := list.DrainEvents()

	require.Len(t, drained, 2)
	assert.Equal(t, events.TypeConnectionAdded, drained[0].GetEventType())
	assert.Equal(t, events.TypeConnectionRemoved, drained[1].GetEventType())
	assert.Empty(t, list.DrainEvents())
}

type failingStore struct {
	err error
}

func (s failingStore) Load(ctx context.Context, customerID valueobjects.CustomerID) (*ports.Document, error) {
	return nil, s.err
}

func (s failingStore) Save(ctx context.Context, customerID valueobjects.CustomerID, value []byte, expectedVersion string) (string, error) {
	return "", s.err
}

func TestConnectionList_CurrentSchemaDuplicateIDsStayEditable(t *testing.T) {
	ctx := context.Background()
	store := newScriptedStore()
	store.Put(ada, []byte(`{"schemaVersion":1,"nodes":[{"id":"x","name":"Ada"},{"id":"x","name":"Grace"}],"edges":[]}`))
	list := newTestList(store)

	result, err := list.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, LoadStatusOK, result.Status)

	_, err = list.Add(ctx, AddConnectionInput{Name: "Edsger"})
	require.NoError(t, err)

	x, err := valueobjects.NewConnectionIDFromString("x")
	require.NoError(t, err)
	removed, err := list.Remove(ctx, x, nil)
	require.NoError(t, err)
	assert.True(t, removed)

	names := make([]string, 0, 2)
	for _, n := range reload(t, store).Snapshot().Nodes {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"Grace", "Edsger"}, names)
}
