// Package injector implements a type-indexed dependency injection
// container: a type's instance is resolved either from a registered recipe
// or by zero-value default construction, cached by (TypeID, instance-id),
// and torn down in reverse construction order on Close. It mirrors the
// original core's Injector, adapted for Go's lack of a recursive mutex (see
// the split critical-section design below) and its lack of exceptions (Get,
// Create and every recipe return an error instead of throwing).
//
// Go collapses two distinctions the original made: there is no separate
// reference-vs-pointer argument kind for constructor recipes (only
// pointer-or-interface vs value), and BindImpl requires its Iface type parameter to be
// an actual Go interface, since Go — unlike C++ — never has a concrete type
// masquerading as an abstract one.
package injector

import (
	"bytes"
	"fmt"
	"reflect"
	"runtime"
	"strconv"
	"sync"

	"github.com/me/mgfw/pkg/deferred"
	"github.com/me/mgfw/pkg/typeid"
	"github.com/me/mgfw/pkg/typemap"
)

// NoDefaultConstruct is an opt-out marker: a type implementing it (on value
// or pointer receiver) can never be default-constructed by the Injector —
// Get/Create will fail with ErrNotDefaultConstructible unless a recipe is
// registered for it. Go's zero value always exists, unlike C++, so without
// this marker every type is implicitly default-constructible.
type NoDefaultConstruct interface {
	MgfwNoDefaultConstruct()
}

type recipeKind int

const (
	recipeConcrete recipeKind = iota
	recipeInterface
)

// recipeFunc is the fully type-erased shape every recipe is stored as,
// regardless of how many constructor arguments it started with.
type recipeFunc func(*Injector) (any, error)

type recipeEntry struct {
	kind recipeKind
	fn   recipeFunc
}

type instKey struct {
	id       uint32
	instance int64
}

// Injector is the DI container. The zero value is not usable; use New.
//
// Locking follows a split critical-section design: mu guards the recipe
// table, the type map and the instantiation list, while inflightMu guards
// only the in-flight cycle-detection sets. A recipe function is always
// invoked with neither lock held, so a recipe that itself calls Get or
// Create on the same Injector never deadlocks against a held, non-reentrant
// sync.Mutex — the in-flight sets are what catch a genuine cycle instead.
//
// The in-flight set is scoped per goroutine, not per Injector: two
// goroutines resolving the same not-yet-cached type concurrently are doing
// independent work, not racing around a cycle, so each gets its own set
// keyed by the calling goroutine's id. A cycle is only ever a type recurring
// within one goroutine's own construction chain.
type Injector struct {
	mu                sync.Mutex
	typeMap           *typemap.Map
	recipes           map[uint32]recipeEntry
	instantiationList []instKey
	names             map[uint32]string

	inflightMu sync.Mutex
	inFlight   map[int64]map[instKey]bool
}

// New creates an empty Injector.
func New() *Injector {
	return &Injector{
		typeMap:  typemap.New(),
		recipes:  make(map[uint32]recipeEntry),
		names:    make(map[uint32]string),
		inFlight: make(map[int64]map[instKey]bool),
	}
}

// goroutineID extracts the numeric id runtime.Stack prints at the start of
// every goroutine's dump ("goroutine 123 [running]: ..."). It has no
// official API; Go intentionally exposes no goroutine-identity primitive.
// This is only ever used to scope cycle-detection state to "the current
// construction call chain," never for scheduling or synchronization.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseInt(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// AddRecipe registers fn as the way to construct a T, for callers who need
// full control over construction (AddCtorRecipe0..4 are thin wrappers over
// this for the common constructor-function case). Fails with
// ErrRecipeExists if T already has a recipe.
func AddRecipe[T any](inj *Injector, fn func(*Injector) (T, error)) error {
	id := typeid.Of[T]()

	inj.mu.Lock()
	defer inj.mu.Unlock()
	if _, exists := inj.recipes[id]; exists {
		return fmt.Errorf("%w: %s", ErrRecipeExists, typeid.NameOf[T]())
	}
	inj.names[id] = typeid.NameOf[T]()
	inj.recipes[id] = recipeEntry{
		kind: recipeConcrete,
		fn: func(in *Injector) (any, error) {
			v, err := fn(in)
			if err != nil {
				return nil, err
			}
			return any(v), nil
		},
	}
	return nil
}

// BindImpl registers Impl as the implementation Get[Iface] resolves to.
// Iface must be an interface type and Impl must satisfy it; Go cannot use
// one type parameter as another's constraint, so this is checked by
// reflection when BindImpl is called, failing with ErrRecipeKindMismatch.
// Resolving Iface always routes through Get[Impl], so the two share one
// cached instance and one place in the destruction order.
func BindImpl[Iface, Impl any](inj *Injector) error {
	id := typeid.Of[Iface]()
	ifaceType := reflect.TypeOf((*Iface)(nil)).Elem()
	implType := reflect.TypeOf((*Impl)(nil)).Elem()
	if ifaceType.Kind() != reflect.Interface || !implType.Implements(ifaceType) {
		return fmt.Errorf("%w: %s does not implement interface %s",
			ErrRecipeKindMismatch, typeid.NameOf[Impl](), typeid.NameOf[Iface]())
	}

	inj.mu.Lock()
	defer inj.mu.Unlock()
	if _, exists := inj.recipes[id]; exists {
		return fmt.Errorf("%w: %s", ErrRecipeExists, typeid.NameOf[Iface]())
	}
	inj.names[id] = typeid.NameOf[Iface]()
	inj.recipes[id] = recipeEntry{
		kind: recipeInterface,
		fn: func(in *Injector) (any, error) {
			v, err := Get[Impl](in)
			if err != nil {
				return nil, err
			}
			return any(v), nil
		},
	}
	return nil
}

// Get resolves a T, constructing and caching it on first request. instance
// optionally selects a non-default instance id (only meaningful for
// concrete types — interface resolution always routes to the bound
// implementation's own, single cached instance). Requesting *Injector
// itself returns inj.
func Get[T any](inj *Injector, instance ...int64) (T, error) {
	if self, ok := any(inj).(T); ok && isInjectorSelf[T]() {
		return self, nil
	}

	if typeid.IsInterface[T]() {
		return getInterface[T](inj)
	}

	inst := typemap.DefaultInstance
	if len(instance) > 0 {
		inst = instance[0]
	}
	return getConcrete[T](inj, inst)
}

// isInjectorSelf reports whether T is exactly *Injector, guarding the
// get-self special case against accidentally matching some unrelated
// interface that *Injector happens to satisfy.
func isInjectorSelf[T any]() bool {
	return reflect.TypeOf((*T)(nil)).Elem() == reflect.TypeOf((*Injector)(nil))
}

func getInterface[T any](inj *Injector) (T, error) {
	var zero T
	id := typeid.Of[T]()

	inj.mu.Lock()
	entry, ok := inj.recipes[id]
	inj.mu.Unlock()

	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrAbstractNoRecipe, typeid.NameOf[T]())
	}
	if entry.kind != recipeInterface {
		return zero, fmt.Errorf("%w: %s", ErrRecipeKindMismatch, typeid.NameOf[T]())
	}

	result, err := entry.fn(inj)
	if err != nil {
		return zero, err
	}
	v, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrRecipeKindMismatch, typeid.NameOf[T]())
	}
	return v, nil
}

func getConcrete[T any](inj *Injector, inst int64) (T, error) {
	inj.mu.Lock()
	if ptr, ok := typemap.Find[T](inj.typeMap, inst); ok {
		v := *ptr
		inj.mu.Unlock()
		return v, nil
	}
	inj.mu.Unlock()

	return construct[T](inj, inst, true)
}

// Create builds a fresh, uncached T every call — the Injector's "new value"
// mode, for dependencies that must never be shared. T must not be an
// interface type; there is no implementation to default-construct.
func Create[T any](inj *Injector) (T, error) {
	var zero T
	if typeid.IsInterface[T]() {
		return zero, fmt.Errorf("%w: %s", ErrAbstractNoRecipe, typeid.NameOf[T]())
	}
	return construct[T](inj, typemap.DefaultInstance, false)
}

// construct runs the cycle-guarded resolution algorithm common to Get and
// Create: look for a recipe, fall back to default construction, and
// optionally cache the result.
func construct[T any](inj *Injector, inst int64, cache bool) (T, error) {
	var zero T
	id := typeid.Of[T]()
	key := instKey{id: id, instance: inst}
	gid := goroutineID()

	inj.inflightMu.Lock()
	set := inj.inFlight[gid]
	if set == nil {
		set = make(map[instKey]bool)
		inj.inFlight[gid] = set
	}
	if set[key] {
		inj.inflightMu.Unlock()
		return zero, fmt.Errorf("%w: %s", ErrDependencyCycle, typeid.NameOf[T]())
	}
	set[key] = true
	inj.inflightMu.Unlock()

	release := deferred.New(func() {
		inj.inflightMu.Lock()
		if set := inj.inFlight[gid]; set != nil {
			delete(set, key)
			if len(set) == 0 {
				delete(inj.inFlight, gid)
			}
		}
		inj.inflightMu.Unlock()
	})
	defer release.Close()

	inj.mu.Lock()
	recipe, hasRecipe := inj.recipes[id]
	inj.mu.Unlock()

	var v T
	switch {
	case hasRecipe && recipe.kind == recipeConcrete:
		result, err := recipe.fn(inj)
		if err != nil {
			return zero, err
		}
		asserted, ok := result.(T)
		if !ok {
			return zero, fmt.Errorf("%w: %s", ErrRecipeKindMismatch, typeid.NameOf[T]())
		}
		v = asserted
	case hasRecipe:
		return zero, fmt.Errorf("%w: %s", ErrRecipeKindMismatch, typeid.NameOf[T]())
	default:
		dv, err := defaultConstruct[T]()
		if err != nil {
			return zero, err
		}
		v = dv
	}

	if !cache {
		return v, nil
	}

	inj.mu.Lock()
	ptr, err := typemap.Insert[T](inj.typeMap, inst, v)
	if err != nil {
		inj.mu.Unlock()
		return zero, err
	}
	inj.names[id] = typeid.NameOf[T]()
	inj.instantiationList = append(inj.instantiationList, key)
	inj.mu.Unlock()

	return *ptr, nil
}

var noDefaultConstructType = reflect.TypeOf((*NoDefaultConstruct)(nil)).Elem()

func defaultConstruct[T any]() (T, error) {
	var zero T
	rt := reflect.TypeOf((*T)(nil)).Elem()

	if rt.Implements(noDefaultConstructType) || reflect.PointerTo(rt).Implements(noDefaultConstructType) {
		return zero, fmt.Errorf("%w: %s", ErrNotDefaultConstructible, typeid.NameOf[T]())
	}

	if rt.Kind() == reflect.Ptr {
		v, ok := reflect.New(rt.Elem()).Interface().(T)
		if !ok {
			return zero, fmt.Errorf("%w: %s", ErrNotDefaultConstructible, typeid.NameOf[T]())
		}
		return v, nil
	}
	return zero, nil
}

// Close destroys every cached instance in reverse construction order,
// calling Close on any instance that implements io.Closer. Safe to call
// once; a second call is a no-op since the instantiation list is empty
// afterward.
func (inj *Injector) Close() {
	inj.mu.Lock()
	defer inj.mu.Unlock()

	for i := len(inj.instantiationList) - 1; i >= 0; i-- {
		k := inj.instantiationList[i]
		inj.typeMap.Erase(k.id, k.instance)
	}
	inj.instantiationList = nil
}

// InstantiationOrder returns the type names of currently cached instances,
// oldest first — exposed for the debug server's /types introspection
// endpoint.
func (inj *Injector) InstantiationOrder() []string {
	inj.mu.Lock()
	defer inj.mu.Unlock()

	names := make([]string, len(inj.instantiationList))
	for i, k := range inj.instantiationList {
		if n, ok := inj.names[k.id]; ok {
			names[i] = n
		} else {
			names[i] = fmt.Sprintf("type#%d", k.id)
		}
	}
	return names
}
