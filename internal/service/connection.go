// Package service contains the business logic: the authorization flow on
// one side and the interview state machine on the other. Services accept
// interfaces for everything they depend on, so tests substitute in-memory
// fakes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/internmatch/internal/apperror"
	"github.com/sakif/internmatch/internal/model"
	"github.com/sakif/internmatch/internal/repository"
)

// Authorizer is the provider port for the authorization-code flow.
// calendar.GoogleProvider implements it.
type Authorizer interface {
	AuthCodeURL(state string) (string, error)
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// StateCodec mints and verifies the signed state parameter.
// calendar.StateSigner implements it.
type StateCodec interface {
	Sign(employerID string) (string, error)
	Verify(state string) (string, error)
}

// ConnectionService bridges employer identities and the provider's OAuth
// flow, and answers connection-status queries.
type ConnectionService struct {
	provider  Authorizer
	states    StateCodec
	creds     repository.CredentialRepository
	employers repository.EmployerDirectory
	logger    *slog.Logger
}

func NewConnectionService(
	provider Authorizer,
	states StateCodec,
	creds repository.CredentialRepository,
	employers repository.EmployerDirectory,
	logger *slog.Logger,
) *ConnectionService {
	return &ConnectionService{
		provider:  provider,
		states:    states,
		creds:     creds,
		employers: employers,
		logger:    logger,
	}
}

// BeginAuthorization mints a signed state for the employer and returns the
// provider URL their browser should be redirected to.
func (s *ConnectionService) BeginAuthorization(ctx context.Context, employerID string) (string, error) {
	employerID = strings.TrimSpace(employerID)
	if employerID == "" {
		return "", apperror.ValidationFailed("employerId", "employer id is required")
	}

	if _, err := s.employers.GetEmployer(ctx, employerID); err != nil {
		return "", err
	}

	state, err := s.states.Sign(employerID)
	if err != nil {
		return "", err
	}

	url, err := s.provider.AuthCodeURL(state)
	if err != nil {
		return "", err
	}

	s.logger.Info("calendar authorization started", slog.String("employerID", employerID))
	return url, nil
}

// CompleteAuthorization consumes the provider callback: verifies the state,
// exchanges the code, and persists the credentials. Persistence is
// all-or-nothing: an exchange failure writes no credential fields.
//
// A freshly issued refresh token overwrites the stored one; when the
// provider omits a refresh token in this exchange, the previously stored
// refresh token is preserved rather than erased.
func (s *ConnectionService) CompleteAuthorization(ctx context.Context, code, state string) (*model.CredentialRecord, error) {
	if strings.TrimSpace(code) == "" {
		return nil, apperror.ValidationFailed("code", "authorization code is required")
	}

	employerID, err := s.states.Verify(state)
	if err != nil {
		return nil, err
	}

	tok, err := s.provider.Exchange(ctx, code)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperror.ExchangeFailed(err)
	}

	scope, _ := tok.Extra("scope").(string)
	rec, err := s.creds.Upsert(ctx, employerID, model.CredentialUpdate{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
		Scope:        scope,
	})
	if err != nil {
		return nil, fmt.Errorf("storing exchanged credentials: %w", err)
	}

	s.logger.Info("calendar connected",
		slog.String("employerID", employerID),
		slog.Bool("refreshToken", rec.RefreshToken != ""),
	)

	return rec, nil
}

// ConnectionStatus is what UIs need to decide whether to prompt
// (re)connection.
type ConnectionStatus struct {
	Connected       bool      `json:"connected"`
	HasRefreshToken bool      `json:"hasRefreshToken"`
	Scope           string    `json:"scope,omitempty"`
	Expiry          time.Time `json:"expiry"`
}

// Status reports the employer's connection state. An employer that never
// authorized is simply not connected.
func (s *ConnectionService) Status(ctx context.Context, employerID string) (*ConnectionStatus, error) {
	employerID = strings.TrimSpace(employerID)
	if employerID == "" {
		return nil, apperror.ValidationFailed("employerId", "employer id is required")
	}

	if _, err := s.employers.GetEmployer(ctx, employerID); err != nil {
		return nil, err
	}

	rec, err := s.creds.Get(ctx, employerID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return &ConnectionStatus{}, nil
		}
		return nil, err
	}

	return &ConnectionStatus{
		Connected:       rec.Connected(),
		HasRefreshToken: rec.RefreshToken != "",
		Scope:           rec.Scope,
		Expiry:          rec.Expiry,
	}, nil
}
