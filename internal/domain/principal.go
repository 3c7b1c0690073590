package domain

// OrgMembership organización accesible por el usuario y su rol en ella.
type OrgMembership struct {
	ID       string
	Name     string
	Slug     string
	Role     Role
	IsActive bool
}

// Principal identidad autenticada de la petición con su contexto de organización.
type Principal struct {
	UserID                string
	Username              string
	Email                 string
	FirstName             string
	LastName              string
	Role                  Role
	Organizations         []OrgMembership
	CurrentOrganizationID string
}

// Membership devuelve la pertenencia a orgID, si existe.
func (p *Principal) Membership(orgID string) (OrgMembership, bool) {
	for _, m := range p.Organizations {
		if m.ID == orgID {
			return m, true
		}
	}
	return OrgMembership{}, false
}

// OrgRole rol del usuario en la organización actual.
func (p *Principal) OrgRole() (Role, bool) {
	if p.CurrentOrganizationID == "" {
		return "", false
	}
	m, ok := p.Membership(p.CurrentOrganizationID)
	if !ok {
		return "", false
	}
	return m.Role, true
}

// HasAnyRole pasa con el rol global o con el rol en la organización actual.
func (p *Principal) HasAnyRole(roles ...Role) bool {
	orgRole, hasOrg := p.OrgRole()
	for _, r := range roles {
		if p.Role == r || (hasOrg && orgRole == r) {
			return true
		}
	}
	return false
}

// Can igual que HasAnyRole pero por capacidad.
func (p *Principal) Can(c Capability) bool {
	if p.Role.Can(c) {
		return true
	}
	orgRole, ok := p.OrgRole()
	return ok && orgRole.Can(c)
}

// InActiveOrganization indica si hay organización actual y el usuario pertenece a ella activamente.
func (p *Principal) InActiveOrganization() bool {
	if p.CurrentOrganizationID == "" {
		return false
	}
	m, ok := p.Membership(p.CurrentOrganizationID)
	return ok && m.IsActive
}

// FullName nombre para mostrar en eventos.
func (p *Principal) FullName() string {
	if p.FirstName == "" && p.LastName == "" {
		return p.Username
	}
	return p.FirstName + " " + p.LastName
}
