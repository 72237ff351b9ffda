package role

import "github.com/garyjia/club-expenses/internal/domain/entity"

// Action is an operation gated by role
type Action string

const (
	ActionSubmitExpense         Action = "expense.submit"
	ActionSetExpenseStatus      Action = "expense.set_status"
	ActionFlagExpense           Action = "expense.flag"
	ActionCommentExpense        Action = "expense.comment"
	ActionRegisterClub          Action = "club.register"
	ActionRequestRepresentative Action = "request.submit"
	ActionDecideRequest         Action = "request.decide"
	ActionPrioritize            Action = "expense.prioritize"
	ActionExportReport          Action = "report.export"
	ActionListAllExpenses       Action = "expense.list_all"
)

var permissions = map[Action]map[entity.Role]bool{
	ActionSubmitExpense:         {entity.RoleAdmin: true, entity.RoleRepresentative: true, entity.RoleStudent: true},
	ActionSetExpenseStatus:      {entity.RoleAdmin: true},
	ActionFlagExpense:           {entity.RoleRepresentative: true},
	ActionCommentExpense:        {entity.RoleAdmin: true},
	ActionRegisterClub:          {entity.RoleAdmin: true, entity.RoleRepresentative: true, entity.RoleStudent: true},
	ActionRequestRepresentative: {entity.RoleStudent: true},
	ActionDecideRequest:         {entity.RoleAdmin: true},
	ActionPrioritize:            {entity.RoleAdmin: true},
	ActionExportReport:          {entity.RoleAdmin: true},
	ActionListAllExpenses:       {entity.RoleAdmin: true},
}
