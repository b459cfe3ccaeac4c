package status

import "time"

type Status struct {
	ID                  string    `yaml:"id" json:"id"`
	Label               string    `yaml:"label" json:"label"`
	Color               string    `yaml:"color" json:"color"`
	Icon                string    `yaml:"icon" json:"icon"`
	OrderIndex          int       `yaml:"order_index" json:"orderIndex"`
	IsFinished          bool      `yaml:"is_finished" json:"isFinished"`
	IsCancelled         bool      `yaml:"is_cancelled" json:"isCancelled"`
	IsDefault           bool      `yaml:"is_default" json:"isDefault"`
	AllowedNextStatuses []string  `yaml:"allowed_next_statuses" json:"allowedNextStatuses"`
	CreatedAt           time.Time `yaml:"created_at" json:"createdAt"`
}

const (
	IDPending           = "pending"
	IDInDesign          = "in_design"
	IDHasComments       = "has_comments"
	IDDesignCompleted   = "design_completed"
	IDAwaitingMaterials = "awaiting_materials"
	IDInMontage         = "in_montage"
	IDMontageCompleted  = "montage_completed"
	IDInPrinting        = "in_printing"
	IDReadyForDelivery  = "ready_for_delivery"
	IDOnHold            = "on_hold"
	IDDelivered         = "delivered"
	IDCancelled         = "cancelled"
)

// DefaultStatuses is the workflow seeded into an empty repository.
func DefaultStatuses() []*Status {
	return []*Status{
		{ID: IDPending, Label: "قيد الانتظار", Color: "#94a3b8", Icon: "clock", OrderIndex: 0, IsDefault: true,
			AllowedNextStatuses: []string{IDInDesign, IDAwaitingMaterials, IDOnHold, IDCancelled}},
		{ID: IDInDesign, Label: "قيد التصميم", Color: "#3b82f6", Icon: "pen-tool", OrderIndex: 1,
			AllowedNextStatuses: []string{IDHasComments, IDDesignCompleted, IDAwaitingMaterials, IDOnHold, IDCancelled}},
		{ID: IDHasComments, Label: "يوجد تعليقات", Color: "#f59e0b", Icon: "message-circle", OrderIndex: 2,
			AllowedNextStatuses: []string{IDInDesign, IDDesignCompleted, IDOnHold, IDCancelled}},
		{ID: IDAwaitingMaterials, Label: "بانتظار المواد", Color: "#a855f7", Icon: "package", OrderIndex: 3},
		{ID: IDDesignCompleted, Label: "اكتمل التصميم", Color: "#10b981", Icon: "check-circle", OrderIndex: 4,
			AllowedNextStatuses: []string{IDHasComments, IDInMontage, IDOnHold, IDCancelled}},
		{ID: IDInMontage, Label: "قيد المونتاج", Color: "#6366f1", Icon: "film", OrderIndex: 5,
			AllowedNextStatuses: []string{IDMontageCompleted, IDHasComments, IDOnHold, IDCancelled}},
		{ID: IDMontageCompleted, Label: "اكتمل المونتاج", Color: "#14b8a6", Icon: "check-square", OrderIndex: 6,
			AllowedNextStatuses: []string{IDInPrinting, IDHasComments, IDOnHold, IDCancelled}},
		{ID: IDInPrinting, Label: "قيد الطباعة", Color: "#0ea5e9", Icon: "printer", OrderIndex: 7,
			AllowedNextStatuses: []string{IDReadyForDelivery, IDOnHold, IDCancelled}},
		{ID: IDReadyForDelivery, Label: "جاهز للتسليم", Color: "#8b5cf6", Icon: "truck", OrderIndex: 8,
			AllowedNextStatuses: []string{IDDelivered, IDOnHold, IDCancelled}},
		{ID: IDOnHold, Label: "معلق", Color: "#64748b", Icon: "pause-circle", OrderIndex: 9},
		{ID: IDDelivered, Label: "تم التسليم", Color: "#059669", Icon: "check", OrderIndex: 10, IsFinished: true},
		{ID: IDCancelled, Label: "ملغي", Color: "#ef4444", Icon: "x-circle", OrderIndex: 11, IsFinished: true, IsCancelled: true},
	}
}
