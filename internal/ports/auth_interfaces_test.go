package ports_test

import (
	"testing"

	"github.com/target/convenios-ui/internal/mocks"
	authmocks "github.com/target/convenios-ui/internal/mocks/auth"
	"github.com/target/convenios-ui/internal/ports"
)

// This test only verifies that our mocks conform to the ports at compile time.
func TestMocksImplementPorts(t *testing.T) {
	t.Helper()

	var _ ports.IdentityProvider = (*authmocks.MemoryProvider)(nil)
	var _ ports.UserRecordStore = (*authmocks.MemoryUserRecords)(nil)
	var _ ports.RoleMapper = authmocks.StaticRoleMapper{}

	var _ ports.IdentityProvider = (*mocks.MockIdentityProvider)(nil)
	var _ ports.UserRecordStore = (*mocks.MockUserRecordStore)(nil)
	var _ ports.RoleMapper = (*mocks.MockRoleMapper)(nil)
	var _ ports.TokenStore = (*mocks.MockTokenStore)(nil)
	var _ ports.EventBus = (*mocks.MockEventBus)(nil)
	var _ ports.CredentialStore = (*mocks.MockCredentialStore)(nil)
	var _ ports.WorkItemSource = (*mocks.MockWorkItemSource)(nil)
	var _ ports.AssignmentWriter = (*mocks.MockAssignmentWriter)(nil)
	var _ ports.BoardStore = (*mocks.MockBoardStore)(nil)
}
