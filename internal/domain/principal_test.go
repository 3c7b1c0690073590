package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrincipal_OrgRoleGrantsCapability(t *testing.T) {
	p := &Principal{
		UserID: "u1",
		Role:   RoleAgent,
		Organizations: []OrgMembership{
			{ID: "org1", Role: RoleManager, IsActive: true},
			{ID: "org2", Role: RoleCustomer, IsActive: true},
		},
		CurrentOrganizationID: "org1",
	}
	assert.True(t, p.Can(CapTasksDelete), "manager en la organización actual")
	assert.True(t, p.HasAnyRole(RoleManager))
	assert.True(t, p.HasAnyRole(RoleAgent), "rol global")

	p.CurrentOrganizationID = "org2"
	assert.False(t, p.Can(CapTasksDelete))
	assert.False(t, p.HasAnyRole(RoleManager))
}

func TestPrincipal_InActiveOrganization(t *testing.T) {
	p := &Principal{Organizations: []OrgMembership{{ID: "org1", IsActive: false}}}
	assert.False(t, p.InActiveOrganization(), "sin organización actual")

	p.CurrentOrganizationID = "org1"
	assert.False(t, p.InActiveOrganization(), "organización inactiva")

	p.Organizations[0].IsActive = true
	assert.True(t, p.InActiveOrganization())

	p.CurrentOrganizationID = "org9"
	assert.False(t, p.InActiveOrganization(), "no es miembro")
}
