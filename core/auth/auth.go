// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package auth resolves credential mechanisms into authenticators. An
// authenticator runs once per connection, before any batch is dispatched
// over it.
package auth

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ephemer/node-mongodb-native/core/command"
)

// Cred is a credential to authenticate with.
type Cred struct {
	Source   string
	Username string
	Password string
}

// Conn is the slice of a connection an authenticator drives: running one
// command document against a database and returning the server's reply.
type Conn interface {
	RunCommand(ctx context.Context, db string, cmd bson.D) (bson.Raw, error)
}

// Authenticator handles authenticating a connection.
type Authenticator interface {
	// Auth authenticates the connection.
	Auth(ctx context.Context, conn Conn) error
}

// AuthenticatorFactory constructs an authenticator from a credential.
type AuthenticatorFactory func(cred *Cred) (Authenticator, error)

var authFactories = make(map[string]AuthenticatorFactory)

func init() {
	RegisterAuthenticatorFactory("", newDefaultAuthenticator)
	RegisterAuthenticatorFactory(SCRAMSHA1, newScramSHA1Authenticator)
	RegisterAuthenticatorFactory(SCRAMSHA256, newScramSHA256Authenticator)
	RegisterAuthenticatorFactory(PLAIN, newPlainAuthenticator)
}

// CreateAuthenticator creates an authenticator for the given mechanism
// name. An empty name selects the default mechanism.
func CreateAuthenticator(name string, cred *Cred) (Authenticator, error) {
	if f, ok := authFactories[name]; ok {
		return f(cred)
	}

	return nil, newAuthError(fmt.Sprintf("unknown authenticator: %s", name), nil)
}

// RegisterAuthenticatorFactory registers the authenticator factory.
func RegisterAuthenticatorFactory(name string, factory AuthenticatorFactory) {
	authFactories[name] = factory
}

func newDefaultAuthenticator(cred *Cred) (Authenticator, error) {
	return newScramSHA256Authenticator(cred)
}

// SaslClient is the client side of a SASL conversation.
type SaslClient interface {
	Start() (string, []byte, error)
	Next(challenge []byte) ([]byte, error)
	Completed() bool
}

type saslResponse struct {
	ConversationID int              `bson:"conversationId"`
	Code           int              `bson:"code"`
	Done           bool             `bson:"done"`
	Payload        primitive.Binary `bson:"payload"`
	OK             int              `bson:"ok"`
	ErrMsg         string           `bson:"errmsg"`
}

// ConductSaslConversation runs a complete SASL conversation for the given
// client against the credential source database.
func ConductSaslConversation(ctx context.Context, conn Conn, db string, client SaslClient) error {
	if db == "" {
		db = defaultAuthDB
	}

	mech, payload, err := client.Start()
	if err != nil {
		return newError(err, mech)
	}

	raw, err := conn.RunCommand(ctx, db, bson.D{
		{Key: "saslStart", Value: 1},
		{Key: "mechanism", Value: mech},
		{Key: "payload", Value: primitive.Binary{Data: payload}},
	})
	if err != nil {
		return newError(err, mech)
	}

	for {
		var resp saslResponse
		if err = bson.Unmarshal(raw, &resp); err != nil {
			return newAuthError("unmarshal SASL response", err)
		}
		if resp.OK != 1 {
			return newError(command.Error{Code: int32(resp.Code), Message: resp.ErrMsg}, mech)
		}

		if resp.Done && client.Completed() {
			return nil
		}

		payload, err = client.Next(resp.Payload.Data)
		if err != nil {
			return newError(err, mech)
		}

		if resp.Done && !client.Completed() {
			return newError(fmt.Errorf("unexpected server challenge"), mech)
		}

		raw, err = conn.RunCommand(ctx, db, bson.D{
			{Key: "saslContinue", Value: 1},
			{Key: "conversationId", Value: resp.ConversationID},
			{Key: "payload", Value: primitive.Binary{Data: payload}},
		})
		if err != nil {
			return newError(err, mech)
		}
	}
}

const defaultAuthDB = "admin"

func newAuthError(msg string, inner error) error {
	return &Error{
		message: msg,
		inner:   inner,
	}
}

func newError(err error, mech string) error {
	return &Error{
		message: fmt.Sprintf("unable to authenticate using mechanism \"%s\"", mech),
		inner:   err,
	}
}

// Error is an error that occurred during authentication.
type Error struct {
	message string
	inner   error
}

func (e *Error) Error() string {
	if e.inner == nil {
		return e.message
	}
	return fmt.Sprintf("%s: %s", e.message, e.inner)
}

// Inner returns the wrapped error.
func (e *Error) Inner() error {
	return e.inner
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.inner
}

// Message returns the message.
func (e *Error) Message() string {
	return e.message
}
