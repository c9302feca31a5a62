package model

import (
	"time"

	"github.com/samber/lo"
)

type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleStaff:
		return true
	}
	return false
}

// TenantAccess grants a user a role inside one tenant. (TenantID, UserID) is unique.
type TenantAccess struct {
	TenantID  string
	UserID    string
	Role      Role
	CreatedAt time.Time
}

type Permission string

const (
	PermViewSales          Permission = "sales.view"
	PermCreateSale         Permission = "sales.create"
	PermManageProducts     Permission = "products.manage"
	PermManageMembers      Permission = "members.manage"
	PermManageExpenses     Permission = "expenses.manage"
	PermManageStores       Permission = "stores.manage"
	PermManageUsers        Permission = "users.manage"
	PermManageSubscription Permission = "subscription.manage"
	PermViewReports        Permission = "reports.view"
)

var staffPermissions = []Permission{
	PermViewSales,
	PermCreateSale,
}

var managerPermissions = append([]Permission{
	PermManageProducts,
	PermManageMembers,
	PermManageExpenses,
	PermViewReports,
}, staffPermissions...)

var ownerPermissions = append([]Permission{
	PermManageStores,
	PermManageUsers,
	PermManageSubscription,
}, managerPermissions...)

var rolePermissions = map[Role][]Permission{
	RoleOwner:   ownerPermissions,
	RoleManager: managerPermissions,
	RoleStaff:   staffPermissions,
}

// RoleHasPermission reports whether role grants permission.
func RoleHasPermission(role Role, permission Permission) bool {
	return lo.Contains(rolePermissions[role], permission)
}

// HasPermission is a pure authorization check. The tenant is always passed
// explicitly; a grant in another tenant never satisfies the check.
func HasPermission(grants []TenantAccess, userID, tenantID string, permission Permission) bool {
	if userID == "" || tenantID == "" {
		return false
	}
	return lo.ContainsBy(grants, func(g TenantAccess) bool {
		return g.UserID == userID && g.TenantID == tenantID && RoleHasPermission(g.Role, permission)
	})
}

// HasRole reports whether the user holds role in tenant.
func HasRole(grants []TenantAccess, userID, tenantID string, role Role) bool {
	return lo.ContainsBy(grants, func(g TenantAccess) bool {
		return g.UserID == userID && g.TenantID == tenantID && g.Role == role
	})
}
