// Package mocks provides mock implementations of the convenios ports for tests.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	provider := mocks.NewMockIdentityProvider(ctrl)
//	provider.EXPECT().GetSession(gomock.Any(), "tok").Return(sess, nil)
package mocks

// Generate mocks for the identity ports in internal/ports.
// CredentialStore, EventBus, IdentityProvider, RoleMapper, TokenStore, UserRecordStore
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=auth_ports_mock.go github.com/target/convenios-ui/internal/ports CredentialStore,EventBus,IdentityProvider,RoleMapper,TokenStore,UserRecordStore

// Generate mocks for the board ports in internal/ports.
// AssignmentWriter, BoardStore, WorkItemSource
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=board_ports_mock.go github.com/target/convenios-ui/internal/ports AssignmentWriter,BoardStore,WorkItemSource
