// Package commands implements the closed set of named command descriptors
// (C6) that the router dispatches into: arity, help text, and an execute
// contract operating on the authenticated session and the write-through
// collection.
package commands

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/serezk4/collectiond/internal/apperrors"
	"github.com/serezk4/collectiond/internal/model"
	"github.com/serezk4/collectiond/internal/server/collection"
)

// Session is the authenticated user a command executes on behalf of.
type Session struct {
	User model.User
}

// Deps collects the collaborators a command needs to execute.
type Deps struct {
	Collection *collection.Collection
}

// ExecuteFunc is the body of a command.
type ExecuteFunc func(ctx context.Context, req model.Request, session Session, deps *Deps) (model.Response, error)

// Command is one named entry in the registry.
type Command struct {
	Name            string
	ArgNames        []string
	HelpText        string
	RequiredPersons int
	Execute         ExecuteFunc
}

// Registry is the closed, case-insensitively keyed set of commands.
type Registry struct {
	byName map[string]Command
	order  []string
}

// NewRegistry builds the registry with the full closed command set.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]Command)}
	for _, c := range all() {
		r.byName[c.Name] = c
		r.order = append(r.order, c.Name)
	}
	return r
}

// Lookup resolves a command by case-insensitive name.
func (r *Registry) Lookup(name string) (Command, bool) {
	c, ok := r.byName[strings.ToLower(name)]
	return c, ok
}

// Help renders the enumerated command list: name, its argNames, and its
// helpText, one per line, in registration order.
func (r *Registry) Help() string {
	var b strings.Builder
	for _, name := range r.order {
		c := r.byName[name]
		b.WriteString(c.Name)
		if len(c.ArgNames) > 0 {
			b.WriteString(" ")
			b.WriteString(strings.Join(c.ArgNames, " "))
		}
		b.WriteString(" - ")
		b.WriteString(c.HelpText)
		b.WriteString("\n")
	}
	return b.String()
}

func all() []Command {
	return []Command{
		{
			Name:            "add",
			ArgNames:        nil,
			HelpText:        "add an element to the collection",
			RequiredPersons: 1,
			Execute:         executeAdd,
		},
		{
			Name:            "remove_by_id",
			ArgNames:        []string{"id"},
			HelpText:        "remove an element by its id",
			RequiredPersons: 0,
			Execute:         executeRemoveByID,
		},
		{
			Name:            "remove_first",
			ArgNames:        nil,
			HelpText:        "remove the first element of the collection",
			RequiredPersons: 0,
			Execute:         executeRemoveFirst,
		},
		{
			Name:            "remove_greater",
			ArgNames:        nil,
			HelpText:        "remove every element greater than the given one",
			RequiredPersons: 1,
			Execute:         executeRemoveGreater,
		},
		{
			Name:            "clear",
			ArgNames:        nil,
			HelpText:        "clear the caller's elements from the collection",
			RequiredPersons: 0,
			Execute:         executeClear,
		},
		{
			Name:            "show",
			ArgNames:        nil,
			HelpText:        "print every element of the collection",
			RequiredPersons: 0,
			Execute:         executeShow,
		},
		{
			Name:            "head",
			ArgNames:        nil,
			HelpText:        "print the first element of the collection",
			RequiredPersons: 0,
			Execute:         executeHead,
		},
		{
			Name:            "sum_of_height",
			ArgNames:        nil,
			HelpText:        "print the sum of the height field across all elements",
			RequiredPersons: 0,
			Execute:         executeSumOfHeight,
		},
		{
			Name:            "print_field_descending_hair_color",
			ArgNames:        nil,
			HelpText:        "print the hairColor field of all elements, descending",
			RequiredPersons: 0,
			Execute:         executePrintFieldDescendingHairColor,
		},
		{
			Name:            "save",
			ArgNames:        nil,
			HelpText:        "save the collection to the store",
			RequiredPersons: 0,
			Execute:         executeSave,
		},
		{
			Name:            "execute_script",
			ArgNames:        []string{"file_name"},
			HelpText:        "read and execute a script from the given file",
			RequiredPersons: 0,
			Execute:         executeExecuteScript,
		},
		{
			Name:            "exit",
			ArgNames:        nil,
			HelpText:        "terminate the client session",
			RequiredPersons: 0,
			Execute:         executeExit,
		},
		{
			Name:            "help",
			ArgNames:        nil,
			HelpText:        "print help for every available command",
			RequiredPersons: 0,
			Execute:         executeHelp,
		},
	}
}

func executeAdd(ctx context.Context, req model.Request, session Session, deps *Deps) (model.Response, error) {
	p := req.Persons[0]
	p.OwnerID = session.User.ID

	saved, err := deps.Collection.Add(ctx, p)
	if err != nil {
		return model.Response{}, err
	}

	return model.Response{Message: fmt.Sprintf("Person added with id %d.", saved.ID)}, nil
}

func executeRemoveByID(ctx context.Context, req model.Request, session Session, deps *Deps) (model.Response, error) {
	if len(req.Args) < 1 {
		return model.Response{Message: "remove_by_id requires an id argument"}, nil
	}

	id, err := strconv.ParseInt(req.Args[0], 10, 64)
	if err != nil {
		return model.Response{Message: "id must be an integer"}, nil
	}

	p, ok := deps.Collection.Get(id)
	if !ok {
		return model.Response{Message: "no such element"}, nil
	}
	if p.OwnerID != session.User.ID {
		return model.Response{}, apperrors.ErrNotOwner
	}

	removed, err := deps.Collection.RemoveByID(ctx, id)
	if err != nil {
		return model.Response{}, err
	}
	if !removed {
		return model.Response{Message: "no such element"}, nil
	}

	return model.Response{Message: "Element removed."}, nil
}

func executeRemoveFirst(ctx context.Context, req model.Request, session Session, deps *Deps) (model.Response, error) {
	snapshot := deps.Collection.Snapshot()
	if len(snapshot) == 0 {
		return model.Response{Message: "the collection is empty"}, nil
	}

	first := snapshot[0]
	if _, err := deps.Collection.RemoveByID(ctx, first.ID); err != nil {
		return model.Response{}, err
	}

	return model.Response{Message: "Element removed."}, nil
}

func executeRemoveGreater(ctx context.Context, req model.Request, session Session, deps *Deps) (model.Response, error) {
	reference := req.Persons[0]

	removed, err := deps.Collection.RemoveWhereAll(ctx, func(p model.Person) bool {
		return !(p.BMI() > reference.BMI())
	})
	if err != nil {
		return model.Response{}, err
	}

	return model.Response{Message: fmt.Sprintf("Removed %d element(s).", removed)}, nil
}

func executeClear(ctx context.Context, req model.Request, session Session, deps *Deps) (model.Response, error) {
	removed, err := deps.Collection.RemoveWhere(ctx, session.User.ID, func(model.Person) bool { return false })
	if err != nil {
		return model.Response{}, err
	}

	return model.Response{Message: fmt.Sprintf("Cleared %d element(s).", removed)}, nil
}

func executeShow(ctx context.Context, req model.Request, session Session, deps *Deps) (model.Response, error) {
	return model.Response{Persons: deps.Collection.Snapshot()}, nil
}

func executeHead(ctx context.Context, req model.Request, session Session, deps *Deps) (model.Response, error) {
	snapshot := deps.Collection.Snapshot()
	if len(snapshot) == 0 {
		return model.Response{Message: "the collection is empty"}, nil
	}
	return model.Response{Persons: snapshot[:1]}, nil
}

func executeSumOfHeight(ctx context.Context, req model.Request, session Session, deps *Deps) (model.Response, error) {
	sum := 0
	for _, p := range deps.Collection.Snapshot() {
		sum += p.Height
	}
	return model.Response{Message: fmt.Sprintf("%d", sum)}, nil
}

func executePrintFieldDescendingHairColor(ctx context.Context, req model.Request, session Session, deps *Deps) (model.Response, error) {
	snapshot := deps.Collection.Snapshot()
	colors := make([]model.HairColor, len(snapshot))
	for i, p := range snapshot {
		colors[i] = p.HairColor
	}
	sort.Slice(colors, func(i, j int) bool { return colors[i] > colors[j] })

	names := make([]string, len(colors))
	for i, c := range colors {
		names[i] = c.String()
	}

	return model.Response{Message: strings.Join(names, ", ")}, nil
}

func executeSave(ctx context.Context, req model.Request, session Session, deps *Deps) (model.Response, error) {
	return model.Response{Message: "Collection is persisted on every mutation; nothing to save."}, nil
}

func executeExecuteScript(ctx context.Context, req model.Request, session Session, deps *Deps) (model.Response, error) {
	if len(req.Args) < 1 {
		return model.Response{Message: "execute_script requires a file_name argument"}, nil
	}

	contents, err := os.ReadFile(req.Args[0])
	if err != nil {
		return model.Response{Message: fmt.Sprintf("cannot read script: %v", err)}, nil
	}

	return model.Response{Script: string(contents)}, nil
}

func executeExit(ctx context.Context, req model.Request, session Session, deps *Deps) (model.Response, error) {
	return model.Response{Message: "Goodbye."}, nil
}

func executeHelp(ctx context.Context, req model.Request, session Session, deps *Deps) (model.Response, error) {
	return model.Response{}, nil
}
