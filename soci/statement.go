package soci

import (
	"context"
	"fmt"

	"github.com/soci-go/soci/backend"
)

// Statement is the central exchange state machine: prepare, bind, execute,
// describe, fetch. It is the Go rendering of statement_impl from
// <soci/statement.h>/src/core/statement.cpp, reduced to what a Go caller
// drives explicitly instead of through operator<</operator,.
type Statement struct {
	session *Session
	be      backend.Statement
	logger  Logger

	query            string
	placeholderNames []string

	intos       []*IntoBinding
	intoBackend []backend.IntoTypeBackend
	uses        []*UseBinding
	useBackend  []backend.UseTypeBackend

	row              *Row
	rowIntoIdx       int // index into intos that holds Row columns, -1 if none
	valuesBinding    *Values

	alreadyDescribed bool
	gotData          bool
	numCols          int
	rowsRequested    int
	initialFetchSize int
	closed           bool
}

// Prepare compiles query (using SOCI's ":name"/"?" placeholder syntax)
// against the session's backend, the Go rendering of
// statement_impl::prepare/alloc.
func (s *Session) Prepare(ctx context.Context, query string) (*Statement, error) {
	native, names := RewritePlaceholders(query, s.backend.Placeholder)

	be := s.backend.MakeStatement()
	if err := be.Prepare(ctx, be.RewriteForProcedureCall(native)); err != nil {
		return nil, wrapBackendErr(err)
	}

	return &Statement{
		session:          s,
		be:               be,
		logger:           s.logger,
		query:            native,
		placeholderNames: names,
		rowIntoIdx:       -1,
	}, nil
}

// Bind attaches Into/Use bindings to the statement. It may be called
// multiple times (e.g. once for a struct's fields); bindings are kept in
// call order, matching the order statement_impl::uses_/intos_ accumulate
// in the original bind()/exchange() calls.
func (st *Statement) Bind(bindings ...any) *Statement {
	for _, raw := range bindings {
		switch b := raw.(type) {
		case *IntoBinding:
			st.bindInto(b)
		case *UseBinding:
			st.bindUse(b)
		default:
			panic(fmt.Sprintf("soci: Statement.Bind: unsupported binding type %T", raw))
		}
	}
	return st
}

func (st *Statement) bindInto(b *IntoBinding) {
	if b.kind == KindRow {
		st.row = b.row
		st.rowIntoIdx = len(st.intos)
	}
	if b.kind == KindValues {
		st.valuesBinding = b.values
		if st.row == nil {
			st.row = NewRow()
		}
		st.rowIntoIdx = len(st.intos)
	}
	st.intos = append(st.intos, b)
	st.intoBackend = append(st.intoBackend, nil)
}

func (st *Statement) bindUse(b *UseBinding) {
	if b.kind == KindValues {
		for name, ub := range b.values.bindUses() {
			ub2 := ub
			ub2.name = name
			ub2.values = b.values
			st.uses = append(st.uses, ub2)
			st.useBackend = append(st.useBackend, nil)
		}
		return
	}
	st.uses = append(st.uses, b)
	st.useBackend = append(st.useBackend, nil)
}

// resolveUseOrdinals matches each bound named/positional use against the
// query's placeholder occurrences. Named uses with no matching
// placeholder move to their owning Values' Unused list unconditionally,
// the behavior ground-truthed in statement_impl::bind(values&): this is
// not an error unless the Values opted into RequireBound(true).
func (st *Statement) resolveUseOrdinals() ([]int, error) {
	if err := checkBindingModeExclusivity(st.uses); err != nil {
		return nil, err
	}

	ordinals := make([]int, len(st.uses))
	byName := make(map[string][]int)
	var anonymous []int
	for i, name := range st.placeholderNames {
		if name == "" {
			anonymous = append(anonymous, i+1)
		} else {
			byName[name] = append(byName[name], i+1)
		}
	}

	// A named use binds to the first occurrence of ":name" in the query;
	// a name repeated more than once only receives its value at that
	// first occurrence. This is a deliberate simplification of the
	// general-case "one value fans out to every occurrence" named-bind
	// behavior, adequate for the common case of one placeholder per name.
	anonCursor := 0
	for i, u := range st.uses {
		if u.name != "" {
			if ords, ok := byName[u.name]; ok && len(ords) > 0 {
				ordinals[i] = ords[0]
				continue
			}
			if u.values != nil {
				if err := u.values.addUnused(u.name); err != nil {
					return nil, err
				}
			}
			ordinals[i] = 0
			continue
		}
		if anonCursor < len(anonymous) {
			ordinals[i] = anonymous[anonCursor]
			anonCursor++
			continue
		}
		return nil, New(InvalidStatement, fmt.Sprintf("soci: more positional uses bound (%d) than placeholders in query (%d)", len(st.uses), len(anonymous)))
	}
	return ordinals, nil
}

// checkBindingModeExclusivity enforces that a statement's use-bindings are
// either all positional or all named, never a mix (ground truth:
// statement_impl requires one binding mode per statement; a values
// aggregator's sub-bindings count as named since they bind by name).
func checkBindingModeExclusivity(uses []*UseBinding) error {
	var sawPositional, sawNamed bool
	for _, u := range uses {
		if u.name == "" {
			sawPositional = true
		} else {
			sawNamed = true
		}
		if sawPositional && sawNamed {
			return New(InvalidStatement, "soci: statement mixes positional and named use-bindings; a statement must use one binding mode or the other")
		}
	}
	return nil
}

// Execute runs the bound statement: binds uses, executes, and — on the
// first successful execution that returns data — describes the result
// set's columns. The Go rendering of statement_impl::execute(true): when
// non-Row intos are bound and the statement returned data, Execute also
// fetches the first round into them; a bound Row is filled only by Fetch.
func (st *Statement) Execute(ctx context.Context) error {
	if st.closed {
		return New(InvalidStatement, "soci: statement already closed")
	}

	for _, b := range st.intos {
		if b.err != nil {
			return b.err
		}
	}
	for _, b := range st.uses {
		if b.err != nil {
			return b.err
		}
	}

	ordinals, err := st.resolveUseOrdinals()
	if err != nil {
		return err
	}

	// initial_fetch_size: common size of vector intos, 1 if none bound. A
	// vector into of length 0 is rejected outright (vectors_of_size_0_not_allowed).
	initialFetchSize := 1
	hasVectorInto := false
	for _, b := range st.intos {
		if b.vector {
			hasVectorInto = true
			initialFetchSize = b.finalElem.Len()
		}
	}
	if hasVectorInto && initialFetchSize == 0 {
		return New(InvalidStatement, "soci: a vector into of size 0 is not allowed")
	}

	// bind_size: common size of vector uses, 1 if none bound.
	bindSize := 1
	for _, b := range st.uses {
		if b.vector {
			bindSize = b.src.Len()
		}
	}

	// bulk insert (bind_size > 1) and bulk select (fetch_size > 1) cannot be
	// combined in one statement.
	if bindSize > 1 && initialFetchSize > 1 {
		return New(InvalidStatement, "soci: a statement cannot combine a bulk (vector) use with a bulk (vector) into")
	}

	st.initialFetchSize = initialFetchSize
	st.rowsRequested = initialFetchSize
	if bindSize > st.rowsRequested {
		st.rowsRequested = bindSize
	}

	// bind uses and run pre_use, mirroring pre_use() over statement_impl's
	// uses_ vector in forward registration order.
	for i, b := range st.uses {
		if ordinals[i] == 0 {
			continue // moved to Unused above; nothing to bind
		}
		ub, err := st.be.NewUse(ordinals[i], b.spec(ordinals[i]))
		if err != nil {
			return wrapBackendErr(err)
		}
		st.useBackend[i] = ub
		if err := ub.PreUse(); err != nil {
			return wrapBackendErr(err)
		}
	}

	if st.logger != nil {
		st.logger.StartQuery(st.query)
		for _, b := range st.uses {
			st.logger.AddQueryParameter(describeUseValue(b))
		}
	}

	res, execErr := st.be.Execute(ctx, st.rowsRequested)
	if execErr != nil {
		return wrapBackendErr(execErr)
	}
	st.gotData = res.GotData
	st.numCols = res.NumColumns

	if st.row != nil && !st.alreadyDescribed {
		if err := st.describe(); err != nil {
			return err
		}
	}
	// Ground truth (statement_impl::execute): the engine re-checks
	// row_ != nullptr && !alreadyDescribed_ a second time after
	// backEnd_->execute() returns. describe() only ever flips
	// alreadyDescribed_ to true when numcols != 0, so this second check
	// is unreachable in practice once the first describe succeeded; it
	// is kept here only because it costs nothing and matches the
	// original control flow exactly.
	if st.row != nil && !st.alreadyDescribed {
		if err := st.describe(); err != nil {
			return err
		}
	}

	// post_use walks uses_ in reverse registration order so a Values
	// aggregator (if bound first) sees its sub-bindings already updated.
	for i := len(st.uses) - 1; i >= 0; i-- {
		if st.useBackend[i] == nil {
			continue
		}
		if err := st.useBackend[i].PostUse(st.gotData); err != nil {
			return wrapBackendErr(err)
		}
	}

	if st.clearValuesParams() {
		// no-op hook kept for symmetry with the original's
		// clear_query_parameters(); logging already recorded them above.
	}

	if !st.gotData {
		return nil
	}

	// A statement with bound (non-Row) intos and no vector fetch loop
	// pending auto-consumes its first row, matching the common
	// single-row SELECT ... INTO usage.
	if len(st.intos) > 0 && st.row == nil {
		if _, err := st.Fetch(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (st *Statement) clearValuesParams() bool {
	if st.logger != nil {
		st.logger.ClearQueryParameters()
	}
	return true
}

func describeUseValue(b *UseBinding) string {
	if !b.staging.IsValid() {
		return "<values>"
	}
	return fmt.Sprintf("%v", b.staging.Interface())
}

// describe builds the Row's column descriptions from the backend's
// describe-phase metadata. Ground truth (statement_impl::describe):
// alreadyDescribed_ is only set true when numcols != 0.
func (st *Statement) describe() error {
	n := st.be.ColumnCount()
	if n == 0 {
		return nil
	}
	for i := 1; i <= n; i++ {
		props, err := st.be.DescribeColumn(i)
		if err != nil {
			return wrapBackendErr(err)
		}
		st.row.addColumn(props)
	}
	st.alreadyDescribed = true
	return nil
}

// Fetch pulls the next round of rows into the bound intos (including a
// bound *Row, one row at a time). ok is false once the result set is
// exhausted — the Go (bool, error) idiom standing in for the original's
// exception-based "no more data" signal.
func (st *Statement) Fetch(ctx context.Context) (bool, error) {
	if !st.gotData {
		return false, nil
	}

	// I4 fetch monotonicity: a caller that grew a bound vector into's slice
	// between Fetch calls would ask for more rows than the initial Execute
	// sized the round for; that requires a re-bind and is rejected here
	// instead of silently under- or over-reading the backend's buffers.
	newFetchSize := 1
	hasVectorInto := false
	for _, b := range st.intos {
		if b.vector {
			hasVectorInto = true
			newFetchSize = b.finalElem.Len()
		}
	}
	if hasVectorInto {
		if newFetchSize > st.initialFetchSize {
			return false, New(InvalidStatement, "soci: increasing the size of the output vector between fetches is not supported")
		}
		st.rowsRequested = newFetchSize
	}

	for i, b := range st.intos {
		if b.kind == KindRow || b.kind == KindValues {
			continue
		}
		if st.intoBackend[i] == nil {
			ib, err := st.be.NewInto(i+1, b.spec(i+1))
			if err != nil {
				return false, wrapBackendErr(err)
			}
			st.intoBackend[i] = ib
		}
		if err := st.intoBackend[i].PreFetch(); err != nil {
			return false, wrapBackendErr(err)
		}
	}

	if st.row != nil {
		st.row.reset()
		if err := st.fetchIntoRow(ctx); err != nil {
			return false, err
		}
		if !st.gotData {
			return false, nil
		}
		if st.valuesBinding != nil {
			// A Values bound via Into(values) reads back fetched columns
			// through GetValue, the Go analogue of into(values&) routing
			// row::get<T>(name) through the aggregator.
			st.valuesBinding.setRow(st.row)
		}
		return true, nil
	}

	res, err := st.be.Fetch(ctx, st.rowsRequested)
	if err != nil {
		return false, wrapBackendErr(err)
	}
	if !res.GotData || res.RowsFetched == 0 {
		st.gotData = false
		return false, nil
	}

	for i, b := range st.intos {
		ib := st.intoBackend[i]
		if ib == nil {
			continue
		}
		if b.vector {
			indicators := make([]Indicator, res.RowsFetched)
			for r := 0; r < res.RowsFetched; r++ {
				ind, err := ib.PostFetch(true, true)
				if err != nil {
					return false, wrapBackendErr(err)
				}
				indicators[r] = ind
			}
			if err := b.applyVector(res.RowsFetched, indicators); err != nil {
				return false, err
			}
			if res.RowsFetched < b.finalElem.Len() {
				backend.ResizeSlice(b.finalElem, res.RowsFetched)
			}
		} else {
			ind, err := ib.PostFetch(true, true)
			if err != nil {
				return false, wrapBackendErr(err)
			}
			if b.indicatorPtr != nil {
				*b.indicatorPtr = ind
			}
			if err := b.applyScalar(ind); err != nil {
				return false, err
			}
		}
	}

	return true, nil
}

// fetchIntoRow drives one describe-phase column per bound Row, fetching
// one scalar per column each round, matching into_row<T>() dispatching
// through the stock basic types for a dynamically-shaped result.
func (st *Statement) fetchIntoRow(ctx context.Context) error {
	res, err := st.be.Fetch(ctx, 1)
	if err != nil {
		return wrapBackendErr(err)
	}
	if !res.GotData {
		st.gotData = false
		return nil
	}

	for i := 0; i < st.row.Size(); i++ {
		props := st.row.props[i]
		staging := newStagingFor(props.DataType)
		ib, err := st.be.NewInto(i+1, backend.IntoSpec{Ptr: staging, DataType: props.DataType})
		if err != nil {
			return wrapBackendErr(err)
		}
		if err := ib.PreFetch(); err != nil {
			return wrapBackendErr(err)
		}
		ind, err := ib.PostFetch(true, true)
		if err != nil {
			return wrapBackendErr(err)
		}
		st.row.set(i, staging.Interface(), ind)
	}
	return nil
}

// AffectedRows returns the number of rows affected by the last Execute,
// for DML statements with no result set.
func (st *Statement) AffectedRows() (int64, error) {
	n, err := st.be.AffectedRows()
	if err != nil {
		return 0, wrapBackendErr(err)
	}
	return n, nil
}

// GotData reports whether the last Execute produced a result set.
func (st *Statement) GotData() bool { return st.gotData }

// Close releases the statement's backend resources. Safe to call more
// than once.
func (st *Statement) Close() error {
	if st.closed {
		return nil
	}
	st.closed = true
	if err := st.be.Clean(); err != nil {
		return wrapBackendErr(err)
	}
	return nil
}
