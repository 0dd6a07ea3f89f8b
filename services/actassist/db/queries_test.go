package db

import (
	"context"
	"testing"

	configlibsql "actassist-backend/lib/configutil/libsql"

	"github.com/stretchr/testify/require"
)

func TestSubmissions(t *testing.T) {
	database, err := configlibsql.Struct{File: ":memory:"}.OpenDB(Schema)
	require.NoError(t, err)
	defer database.Close()
	qry := New(database)
	ctx := context.Background()

	for i, params := range []InsertSubmissionParams{
		{Username: "6401234567", Activity: "101", Code: "A", Success: true, Message: "ok"},
		{Username: "6401234567", Activity: "102", Code: "B", Success: false, Message: "rejected"},
		{Username: "6409999999", Activity: "101", Code: "C", Success: true, Message: "ok"},
	} {
		params.CreatedAt = int64(1000 + i)
		require.NoError(t, qry.InsertSubmission(ctx, params))
	}

	items, err := qry.ListSubmissions(ctx, ListSubmissionsParams{Username: "6401234567", Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "102", items[0].Activity)
	require.False(t, items[0].Success)
	require.Equal(t, "101", items[1].Activity)
	require.True(t, items[1].Success)

	items, err = qry.ListSubmissions(ctx, ListSubmissionsParams{Username: "6401234567", Limit: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)

	items, err = qry.ListSubmissions(ctx, ListSubmissionsParams{Username: "nobody", Limit: 10})
	require.NoError(t, err)
	require.Empty(t, items)

	deleted, err := qry.DeleteSubmissionsBefore(ctx, 1002)
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)

	items, err = qry.ListSubmissions(ctx, ListSubmissionsParams{Username: "6401234567", Limit: 10})
	require.NoError(t, err)
	require.Empty(t, items)
}
