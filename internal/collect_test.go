package internal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollectInlineQuery(t *testing.T) {
	job := Collect(Options{}, []string{"SELECT * WHERE { ?s ?p ?o }"})
	require.Equal(t, "SELECT * WHERE { ?s ?p ?o }", job.QueryBody)
	require.Empty(t, job.DataFiles)
	require.True(t, job.UseStdin)
}

func TestCollectDataFiles(t *testing.T) {
	job := Collect(Options{}, []string{"ASK {}", "a.ttl", "b.nq"})
	require.Equal(t, "ASK {}", job.QueryBody)
	require.Equal(t, []string{"a.ttl", "b.nq"}, job.DataFiles)
}

func TestCollectFileQuery(t *testing.T) {
	job := Collect(Options{FileQuery: true}, []string{"q.rq", "a.ttl"})
	require.Empty(t, job.QueryBody)
	require.Equal(t, "q.rq", job.QueryFile)
	require.Equal(t, []string{"a.ttl"}, job.DataFiles)
}

func TestCollectQueryFilePartition(t *testing.T) {
	// .rq files are always the query source, the last one wins.
	job := Collect(Options{}, []string{"unused", "one.rq", "a.ttl", "two.rq"})
	require.Equal(t, "two.rq", job.QueryFile)
	require.Equal(t, []string{"a.ttl"}, job.DataFiles)
}

func TestCollectNoStdin(t *testing.T) {
	job := Collect(Options{NoStdin: true}, []string{"ASK {}", "a.ttl"})
	require.False(t, job.UseStdin)

	// Without data files the flag has no effect.
	job = Collect(Options{NoStdin: true}, []string{"ASK {}"})
	require.True(t, job.UseStdin)
}

func TestCollectDashForcesStdin(t *testing.T) {
	job := Collect(Options{NoStdin: true}, []string{"ASK {}", "a.ttl", "-"})
	require.True(t, job.UseStdin)
	require.Equal(t, []string{"a.ttl"}, job.DataFiles)
}
