package models

// Статусы сервисов
const (
	ServiceStatusPending  = "pending"
	ServiceStatusActive   = "active"
	ServiceStatusInactive = "inactive"
)

// Статусы заявок
const (
	ProposalStatusPending  = "pending"
	ProposalStatusAccepted = "accepted"
	ProposalStatusRejected = "rejected"
)

// Роли пользователей
const (
	RoleUser   = "user"
	RoleAdmin  = "admin"
	RoleBanned = "banned"
)

// Действия в журнале администратора
const (
	AdminActionValidateService  = "validate_service"
	AdminActionUpdateService    = "update_service"
	AdminActionDeleteService    = "delete_service"
	AdminActionValidateCategory = "validate_category"
	AdminActionUpdateProposal   = "update_proposal"
	AdminActionRejectProposal   = "reject_proposal"
	AdminActionCreateCategory   = "create_category"
	AdminActionUpdateCategory   = "update_category"
	AdminActionDeleteCategory   = "delete_category"
	AdminActionGrantBadge       = "grant_badge"
	AdminActionRevokeBadge      = "revoke_badge"
	AdminActionChangeRole       = "change_role"
)

var ValidServiceStatuses = map[string]struct{}{
	ServiceStatusPending:  {},
	ServiceStatusActive:   {},
	ServiceStatusInactive: {},
}

var ValidProposalStatuses = map[string]struct{}{
	ProposalStatusPending:  {},
	ProposalStatusAccepted: {},
	ProposalStatusRejected: {},
}

var ValidRoles = map[string]struct{}{
	RoleUser:   {},
	RoleAdmin:  {},
	RoleBanned: {},
}

// Разрешённые типы изображений в чате
var AllowedChatImageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}
