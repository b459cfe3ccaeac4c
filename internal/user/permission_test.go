package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kazz187/taskdesk/pkg/cerr"
)

func TestRequire(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, Require(ctx, AdminOnly))

	designer := WithActor(ctx, &User{ID: "u2", Role: RoleDesigner})
	assert.NoError(t, Require(designer, CanCreateTask))
	assert.True(t, cerr.IsCode(Require(designer, CanDeleteTask), cerr.PermissionDenied))
	assert.True(t, cerr.IsCode(Require(designer, AdminOnly), cerr.PermissionDenied))

	printing := WithActor(ctx, &User{ID: "u3", Role: RolePrintManager})
	assert.NoError(t, Require(printing, CanCreateTask))

	admin := WithActor(ctx, &User{ID: "u1", Role: RoleAdmin})
	assert.NoError(t, Require(admin, CanDeleteTask))
	assert.NoError(t, Require(admin, AdminOnly))
}

func TestUser_Password(t *testing.T) {
	u := &User{}
	assert.False(t, u.CheckPassword(""))
	assert.NoError(t, u.SetPassword("secret1"))
	assert.NotEqual(t, "secret1", u.PasswordHash)
	assert.True(t, u.CheckPassword("secret1"))
	assert.False(t, u.CheckPassword("secret2"))
}
