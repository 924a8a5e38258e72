package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/lispcore/lisp"
	"github.com/chazu/lispcore/snapshot"
)

// InspectServiceName is the fully-qualified name of the inspection service.
const InspectServiceName = "lispcore.v1.InspectService"

// Procedure paths served by InspectService.
const (
	StatsProcedure    = "/" + InspectServiceName + "/Stats"
	CollectProcedure  = "/" + InspectServiceName + "/Collect"
	InternProcedure   = "/" + InspectServiceName + "/Intern"
	StoreProcedure    = "/" + InspectServiceName + "/Store"
	DescribeProcedure = "/" + InspectServiceName + "/Describe"
	ReleaseProcedure  = "/" + InspectServiceName + "/Release"
	SnapshotProcedure = "/" + InspectServiceName + "/Snapshot"
)

// InspectService exposes a worker's heap over Connect. Messages are
// google.protobuf.Struct so the service needs no generated code.
type InspectService struct {
	worker    *HeapWorker
	handles   *HandleStore
	collector *Collector
}

// NewInspectService creates an InspectService.
func NewInspectService(worker *HeapWorker, handles *HandleStore, collector *Collector) *InspectService {
	return &InspectService{
		worker:    worker,
		handles:   handles,
		collector: collector,
	}
}

// Handler returns the path prefix and handler to mount on a mux.
func (s *InspectService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(StatsProcedure, connect.NewUnaryHandler(StatsProcedure, s.Stats, opts...))
	mux.Handle(CollectProcedure, connect.NewUnaryHandler(CollectProcedure, s.Collect, opts...))
	mux.Handle(InternProcedure, connect.NewUnaryHandler(InternProcedure, s.Intern, opts...))
	mux.Handle(StoreProcedure, connect.NewUnaryHandler(StoreProcedure, s.Store, opts...))
	mux.Handle(DescribeProcedure, connect.NewUnaryHandler(DescribeProcedure, s.Describe, opts...))
	mux.Handle(ReleaseProcedure, connect.NewUnaryHandler(ReleaseProcedure, s.Release, opts...))
	mux.Handle(SnapshotProcedure, connect.NewUnaryHandler(SnapshotProcedure, s.Snapshot, opts...))
	return "/" + InspectServiceName + "/", mux
}

// Stats reports the current heap counters.
func (s *InspectService) Stats(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	result, err := s.worker.Do(func(cx *lisp.Context) (any, error) {
		return map[string]any{
			"context_id":  cx.ID(),
			"epoch":       cx.Epoch(),
			"objects":     cx.Objects(),
			"bytes":       cx.Bytes(),
			"threshold":   cx.Threshold(),
			"pending":     cx.Pending(),
			"collections": cx.Collections(),
			"symbols":     cx.Symbols().Len(),
			"root_depth":  cx.RootDepth(),
			"handles":     s.handles.Len(),
		}, nil
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return structResponse(result.(map[string]any))
}

// Collect runs a collection. The request field "force" collects even when
// none is pending.
func (s *InspectService) Collect(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	force := req.Msg.GetFields()["force"].GetBoolValue()
	st, err := s.collector.CollectNow(force)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if st == nil {
		return structResponse(map[string]any{"ran": false})
	}
	return structResponse(statsMap(st))
}

// Intern interns a symbol and returns a handle to it.
func (s *InspectService) Intern(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	name := req.Msg.GetFields()["name"].GetStringValue()
	if name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("name is required"))
	}
	result, err := s.worker.Do(func(cx *lisp.Context) (any, error) {
		sym := cx.Intern(name)
		return map[string]any{
			"handle": s.handles.Create(cx, sym.Object()),
			"id":     uint32(sym.SymbolID()),
		}, nil
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return structResponse(result.(map[string]any))
}

// Store converts the JSON value in the field "value" to a Lisp object and
// returns a handle to it. Integral numbers become fixnums, arrays become
// lists.
func (s *InspectService) Store(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	value, ok := req.Msg.GetFields()["value"]
	if !ok {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("value is required"))
	}
	result, err := s.worker.Do(func(cx *lisp.Context) (any, error) {
		obj, err := fromJSON(cx, value.AsInterface())
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"handle":  s.handles.Create(cx, obj),
			"display": cx.Format(obj),
		}, nil
	})
	if err != nil {
		return nil, connectError(err)
	}
	return structResponse(result.(map[string]any))
}

// Describe renders the current value behind a handle.
func (s *InspectService) Describe(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	id := req.Msg.GetFields()["handle"].GetStringValue()
	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("handle is required"))
	}
	result, err := s.worker.Do(func(cx *lisp.Context) (any, error) {
		v, ok := s.handles.Lookup(id)
		if !ok {
			return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("handle %q not found", id))
		}
		return map[string]any{
			"handle":  id,
			"type":    lisp.TypeOf(v.Tag()).String(),
			"display": cx.Format(v),
		}, nil
	})
	if err != nil {
		return nil, connectError(err)
	}
	return structResponse(result.(map[string]any))
}

// Release drops a handle.
func (s *InspectService) Release(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	id := req.Msg.GetFields()["handle"].GetStringValue()
	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("handle is required"))
	}
	return structResponse(map[string]any{"released": s.handles.Release(id)})
}

// Snapshot captures the heap and returns per-kind object counts along with
// the snapshot size in CBOR.
func (s *InspectService) Snapshot(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	result, err := s.worker.Do(func(cx *lisp.Context) (any, error) {
		return snapshot.Capture(cx), nil
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	snap := result.(*snapshot.Snapshot)
	data, err := snapshot.Marshal(snap)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	kinds := make(map[string]any)
	for k, n := range snap.CountByKind() {
		kinds[k] = n
	}
	return structResponse(map[string]any{
		"id":      snap.ID,
		"epoch":   snap.Epoch,
		"objects": len(snap.Objects),
		"kinds":   kinds,
		"encoded": len(data),
	})
}

func statsMap(st *lisp.Stats) map[string]any {
	return map[string]any{
		"ran":            true,
		"epoch":          st.Epoch,
		"objects_before": st.ObjectsBefore,
		"objects_after":  st.ObjectsAfter,
		"bytes_before":   st.BytesBefore,
		"bytes_after":    st.BytesAfter,
		"roots":          st.Roots,
		"symbols_swept":  st.SymbolsSwept,
		"duration":       st.Duration.String(),
	}
}

func structResponse(m map[string]any) (*connect.Response[structpb.Struct], error) {
	msg, err := structpb.NewStruct(m)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// connectError passes connect errors through and maps conversion errors to
// InvalidArgument. Anything else is internal.
func connectError(err error) error {
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce
	}
	var te *lisp.TypeError
	var re *lisp.RangeError
	if errors.As(err, &te) || errors.As(err, &re) || errors.Is(err, errUnsupportedJSON) {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

var errUnsupportedJSON = errors.New("unsupported JSON value")

// fromJSON builds a Lisp object from a decoded JSON value.
func fromJSON(cx *lisp.Context, v any) (lisp.Gc[lisp.Object], error) {
	switch v := v.(type) {
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return cx.Add(int64(v))
		}
		return cx.Add(v)
	case []any:
		items := make([]lisp.Gc[lisp.Object], len(v))
		for i, e := range v {
			obj, err := fromJSON(cx, e)
			if err != nil {
				return lisp.Nil.Object(), err
			}
			items[i] = obj
		}
		return cx.NewList(items...).Object(), nil
	case map[string]any:
		return lisp.Nil.Object(), fmt.Errorf("%w: object", errUnsupportedJSON)
	default:
		return cx.Add(v)
	}
}
