package handler

import (
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatepost/gatepost/pkg/matcher"
)

func preparedTable(t *testing.T, port int, body string) *Table {
	t.Helper()

	table := &Table{
		Host: "127.0.0.1",
		Port: port,
		Handlers: []RouteHandler{
			{Match: &matcher.Path{Value: "abc"}, Page: &EmbeddedPage{Data: []byte(body), ContentType: "text/plain"}},
		},
		NotFound: &EmbeddedPage{Data: []byte("404: not found."), ContentType: "text/html"},
		NoPath:   &RedirectPage{To: "/_"},
	}
	require.NoError(t, table.Prepare())

	return table
}

func TestStoreStartsEmpty(t *testing.T) {
	assert.Nil(t, NewStore().Current())
}

func TestStoreFirstInstallAlwaysSucceeds(t *testing.T) {
	store := NewStore()
	table := preparedTable(t, 8387, "v1")

	require.NoError(t, store.Replace(table))
	assert.Same(t, table, store.Current())
}

func TestStoreSwapsTableWithSameBind(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Replace(preparedTable(t, 8387, "v1")))

	next := preparedTable(t, 8387, "v2")
	require.NoError(t, store.Replace(next))
	assert.Same(t, next, store.Current())
}

func TestStoreRejectsBindChange(t *testing.T) {
	store := NewStore()
	active := preparedTable(t, 8387, "v1")
	require.NoError(t, store.Replace(active))

	err := store.Replace(preparedTable(t, 9000, "v2"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRestartRequired))

	// The failed reload must leave the active table untouched.
	assert.Same(t, active, store.Current())
}

func TestStoreSnapshotSurvivesSwap(t *testing.T) {
	store := NewStore()
	old := preparedTable(t, 8387, "old")
	require.NoError(t, store.Replace(old))

	// A reader mid-request keeps the table it already obtained.
	snapshot := store.Current()
	require.NoError(t, store.Replace(preparedTable(t, 8387, "new")))

	page, matched := snapshot.Resolve("/abc")
	require.True(t, matched)
	assert.Equal(t, "old", string(page.(*EmbeddedPage).Data))
}

func TestStoreReplaceClosesRetiredTableIdleConnections(t *testing.T) {
	var newConns int32
	upstream := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	upstream.Config.ConnState = func(c net.Conn, state http.ConnState) {
		if state == http.StateNew {
			atomic.AddInt32(&newConns, 1)
		}
	}
	upstream.Start()
	defer upstream.Close()

	proxy := &ProxyPage{Scheme: "http", Upstream: upstream.Listener.Addr().String()}
	old := &Table{
		Host:     "127.0.0.1",
		Port:     8387,
		Handlers: []RouteHandler{{Match: &matcher.Root{}, Page: proxy}},
		NotFound: &EmbeddedPage{Data: []byte("404: not found."), ContentType: "text/html"},
		NoPath:   &RedirectPage{To: "/_"},
	}
	require.NoError(t, old.Prepare())

	store := NewStore()
	require.NoError(t, store.Replace(old))

	serve := func() {
		w := httptest.NewRecorder()
		require.NoError(t, proxy.Serve(w, httptest.NewRequest("GET", "/", nil)))
	}

	serve()
	// Let the transport park the connection in the idle pool before the
	// swap retires the table.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, store.Replace(preparedTable(t, 8387, "v2")))

	// The retired table's pooled connection was closed, so its snapshot
	// dials a fresh one and keeps working for mid-flight readers.
	serve()
	assert.EqualValues(t, 2, atomic.LoadInt32(&newConns))
}

func TestStoreConcurrentReadersAndReloads(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Replace(preparedTable(t, 8387, "v1")))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				table := store.Current()
				if !assert.NotNil(t, table) {
					return
				}
				page, _ := table.Resolve("/abc")
				assert.NotNil(t, page)
			}
		}()
	}

	for j := 0; j < 50; j++ {
		require.NoError(t, store.Replace(preparedTable(t, 8387, "vN")))
	}

	wg.Wait()
}
