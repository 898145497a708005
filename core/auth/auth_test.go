// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// scriptedConn replays canned command replies and records the commands it
// was asked to run.
type scriptedConn struct {
	t       *testing.T
	replies []bson.D

	dbs  []string
	cmds []bson.D
}

func (c *scriptedConn) RunCommand(_ context.Context, db string, cmd bson.D) (bson.Raw, error) {
	i := len(c.cmds)
	c.dbs = append(c.dbs, db)
	c.cmds = append(c.cmds, cmd)
	require.Less(c.t, i, len(c.replies), "unexpected command")

	raw, err := bson.Marshal(c.replies[i])
	require.NoError(c.t, err)
	return bson.Raw(raw), nil
}

func TestCreateAuthenticator(t *testing.T) {
	cred := &Cred{Source: "admin", Username: "user", Password: "pencil"}

	testCases := []struct {
		name      string
		mechanism string
		expected  interface{}
	}{
		{"default", "", &ScramAuthenticator{}},
		{"scram-sha-1", SCRAMSHA1, &ScramAuthenticator{}},
		{"scram-sha-256", SCRAMSHA256, &ScramAuthenticator{}},
		{"plain", PLAIN, &PlainAuthenticator{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := CreateAuthenticator(tc.mechanism, cred)
			require.NoError(t, err)
			require.IsType(t, tc.expected, a)
		})
	}

	t.Run("unknown mechanism", func(t *testing.T) {
		_, err := CreateAuthenticator("MONGODB-BOGUS", cred)
		require.Error(t, err)
	})
}

func TestPlainAuthenticator(t *testing.T) {
	conn := &scriptedConn{t: t, replies: []bson.D{
		{{Key: "conversationId", Value: 1}, {Key: "done", Value: true}, {Key: "payload", Value: primitive.Binary{}}, {Key: "ok", Value: 1}},
	}}

	a, err := CreateAuthenticator(PLAIN, &Cred{Source: "$external", Username: "user", Password: "pencil"})
	require.NoError(t, err)
	require.NoError(t, a.Auth(context.Background(), conn))

	require.Equal(t, []string{"$external"}, conn.dbs)
	require.Equal(t, "saslStart", conn.cmds[0][0].Key)
	require.Equal(t, PLAIN, conn.cmds[0][1].Value)

	payload := conn.cmds[0][2].Value.(primitive.Binary)
	require.Equal(t, []byte("\x00user\x00pencil"), payload.Data)
}

func TestConductSaslConversation(t *testing.T) {
	t.Run("defaults to admin database", func(t *testing.T) {
		conn := &scriptedConn{t: t, replies: []bson.D{
			{{Key: "conversationId", Value: 1}, {Key: "done", Value: true}, {Key: "payload", Value: primitive.Binary{}}, {Key: "ok", Value: 1}},
		}}

		err := ConductSaslConversation(context.Background(), conn, "", &plainSaslClient{username: "u", password: "p"})
		require.NoError(t, err)
		require.Equal(t, []string{"admin"}, conn.dbs)
	})

	t.Run("server error surfaces", func(t *testing.T) {
		conn := &scriptedConn{t: t, replies: []bson.D{
			{{Key: "ok", Value: 0}, {Key: "errmsg", Value: "auth failed"}},
		}}

		err := ConductSaslConversation(context.Background(), conn, "admin", &plainSaslClient{username: "u", password: "p"})
		require.Error(t, err)

		var authErr *Error
		require.ErrorAs(t, err, &authErr)
		require.Contains(t, authErr.Error(), "auth failed")
	})
}

func TestMongoPasswordDigest(t *testing.T) {
	// Known digest for user:mongo:password style credentials.
	require.Equal(t, "1c33006ec1ffd90f9cadcbcc0e118200", mongoPasswordDigest("user", "pencil"))
}
