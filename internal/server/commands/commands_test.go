package commands

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/serezk4/collectiond/internal/apperrors"
	"github.com/serezk4/collectiond/internal/model"
	"github.com/serezk4/collectiond/internal/server/collection"
)

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func createTempScript(t *testing.T, contents string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.txt")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

type memStore struct {
	nextID int64
	byID   map[int64]model.Person
}

func newMemStore() *memStore {
	return &memStore{byID: make(map[int64]model.Person)}
}

func (s *memStore) FindAllPersons(ctx context.Context) ([]model.Person, error) {
	out := make([]model.Person, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, p)
	}
	return out, nil
}

func (s *memStore) SavePerson(ctx context.Context, p model.Person) (model.Person, error) {
	s.nextID++
	p.ID = s.nextID
	s.byID[p.ID] = p
	return p, nil
}

func (s *memStore) RemovePersonByID(ctx context.Context, id int64) (bool, error) {
	if _, ok := s.byID[id]; !ok {
		return false, nil
	}
	delete(s.byID, id)
	return true, nil
}

func newDeps() *Deps {
	return &Deps{Collection: collection.New(newMemStore())}
}

func TestRegistryLookupIsCaseInsensitive(t *testing.T) {
	r := NewRegistry()

	c, ok := r.Lookup("ADD")
	require.True(t, ok)
	require.Equal(t, "add", c.Name)

	_, ok = r.Lookup("nonexistent")
	require.False(t, ok)
}

func TestHelpListsEveryCommand(t *testing.T) {
	r := NewRegistry()
	help := r.Help()
	for _, name := range []string{"add", "remove_by_id", "remove_first", "remove_greater",
		"clear", "show", "head", "sum_of_height", "print_field_descending_hair_color",
		"save", "execute_script", "exit", "help"} {
		require.Contains(t, help, name)
	}
}

func TestAddAssignsOwnerFromSession(t *testing.T) {
	deps := newDeps()
	session := Session{User: model.User{ID: 7}}

	resp, err := executeAdd(context.Background(), model.Request{
		Persons: []model.Person{{Name: "Alice", Height: 170, Weight: 60}},
	}, session, deps)
	require.NoError(t, err)
	require.Contains(t, resp.Message, "added")

	snapshot := deps.Collection.Snapshot()
	require.Len(t, snapshot, 1)
	require.Equal(t, int64(7), snapshot[0].OwnerID)
}

func TestRemoveByIDRejectsNonOwner(t *testing.T) {
	deps := newDeps()
	owner := Session{User: model.User{ID: 1}}
	intruder := Session{User: model.User{ID: 2}}

	saved, err := deps.Collection.Add(context.Background(), model.Person{OwnerID: 1, Height: 170, Weight: 60})
	require.NoError(t, err)

	_, err = executeRemoveByID(context.Background(), model.Request{
		Args: []string{"not-an-int"},
	}, owner, deps)
	require.NoError(t, err)

	_, err = executeRemoveByID(context.Background(), model.Request{
		Args: []string{itoa(saved.ID)},
	}, intruder, deps)
	require.ErrorIs(t, err, apperrors.ErrNotOwner)

	require.Equal(t, 1, deps.Collection.Len())
}

func TestRemoveFirstOnEmptyCollectionIsDescriptive(t *testing.T) {
	deps := newDeps()
	resp, err := executeRemoveFirst(context.Background(), model.Request{}, Session{}, deps)
	require.NoError(t, err)
	require.Contains(t, resp.Message, "empty")
}

func TestRemoveGreaterRemovesOnlyStrictlyGreaterBMI(t *testing.T) {
	deps := newDeps()
	ctx := context.Background()

	// BMI = weight / height^2
	p1, _ := deps.Collection.Add(ctx, model.Person{Height: 200, Weight: 80}) // 0.0020
	p2, _ := deps.Collection.Add(ctx, model.Person{Height: 150, Weight: 80}) // 0.0036
	p3, _ := deps.Collection.Add(ctx, model.Person{Height: 170, Weight: 70}) // 0.0024

	resp, err := executeRemoveGreater(ctx, model.Request{
		Persons: []model.Person{{Height: 170, Weight: 70}}, // reference BMI == p3's BMI
	}, Session{}, deps)
	require.NoError(t, err)
	require.Contains(t, resp.Message, "1")

	_, ok := deps.Collection.Get(p2.ID)
	require.False(t, ok)
	_, ok = deps.Collection.Get(p1.ID)
	require.True(t, ok)
	_, ok = deps.Collection.Get(p3.ID)
	require.True(t, ok)
}

func TestClearOnlyRemovesCallersPersons(t *testing.T) {
	deps := newDeps()
	ctx := context.Background()

	deps.Collection.Add(ctx, model.Person{OwnerID: 1, Height: 170, Weight: 60})
	deps.Collection.Add(ctx, model.Person{OwnerID: 2, Height: 170, Weight: 60})

	_, err := executeClear(ctx, model.Request{}, Session{User: model.User{ID: 1}}, deps)
	require.NoError(t, err)

	require.Equal(t, 1, deps.Collection.Len())
	remaining := deps.Collection.Snapshot()
	require.Equal(t, int64(2), remaining[0].OwnerID)
}

func TestSumOfHeight(t *testing.T) {
	deps := newDeps()
	ctx := context.Background()
	deps.Collection.Add(ctx, model.Person{Height: 100, Weight: 10})
	deps.Collection.Add(ctx, model.Person{Height: 150, Weight: 10})

	resp, err := executeSumOfHeight(ctx, model.Request{}, Session{}, deps)
	require.NoError(t, err)
	require.Equal(t, "250", resp.Message)
}

func TestPrintFieldDescendingHairColorOrdersByEnumDeclarationDescending(t *testing.T) {
	deps := newDeps()
	ctx := context.Background()
	deps.Collection.Add(ctx, model.Person{Height: 100, Weight: 10, HairColor: model.Green})
	deps.Collection.Add(ctx, model.Person{Height: 100, Weight: 10, HairColor: model.White})
	deps.Collection.Add(ctx, model.Person{Height: 100, Weight: 10, HairColor: model.Blue})

	resp, err := executePrintFieldDescendingHairColor(ctx, model.Request{}, Session{}, deps)
	require.NoError(t, err)
	require.Equal(t, "WHITE, BLUE, GREEN", resp.Message)
}

func TestExecuteScriptReturnsFileContentsInScriptField(t *testing.T) {
	deps := newDeps()
	f, err := createTempScript(t, "show\nexit\n")
	require.NoError(t, err)

	resp, err := executeExecuteScript(context.Background(), model.Request{Args: []string{f}}, Session{}, deps)
	require.NoError(t, err)
	require.Equal(t, "show\nexit\n", resp.Script)
}

func TestExecuteScriptMissingArgIsDescriptive(t *testing.T) {
	deps := newDeps()
	resp, err := executeExecuteScript(context.Background(), model.Request{}, Session{}, deps)
	require.NoError(t, err)
	require.Contains(t, resp.Message, "requires")
}
