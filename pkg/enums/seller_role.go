package enums

import "fmt"

// SellerRole represents the permission tier assigned to a seller account.
type SellerRole string

const (
	SellerRoleSeller SellerRole = "seller"
	SellerRoleAdmin  SellerRole = "admin"
)

var sellerRoles = map[SellerRole]struct{}{
	SellerRoleSeller: {},
	SellerRoleAdmin:  {},
}

// String returns the literal enum value.
func (r SellerRole) String() string {
	return string(r)
}

// IsValid reports whether r is a role the system grants.
func (r SellerRole) IsValid() bool {
	_, ok := sellerRoles[r]
	return ok
}

// ParseSellerRole types raw input, rejecting unknown roles.
func ParseSellerRole(value string) (SellerRole, error) {
	role := SellerRole(value)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid seller role %q", value)
	}
	return role, nil
}
