package msgtemplate

type Type string

const (
	NewProject         Type = "NEW_PROJECT"
	NewSubtask         Type = "NEW_SUBTASK"
	SubtaskUpdate      Type = "SUBTASK_UPDATE"
	SubtaskSpecsUpdate Type = "SUBTASK_SPECS_UPDATE"
	StatusChange       Type = "STATUS_CHANGE"
	CommentAdded       Type = "COMMENT_ADDED"
	ReplyAdded         Type = "REPLY_ADDED"
	CommentResolved    Type = "COMMENT_RESOLVED"
	AttachmentAdded    Type = "ATTACHMENT_ADDED"
)

type Category string

const (
	CategoryTask    Category = "task"
	CategoryStatus  Category = "status"
	CategoryComment Category = "comment"
	CategoryFile    Category = "attachment"
)

type Variable struct {
	Key         string `json:"key"`
	Description string `json:"description"`
	Example     string `json:"example"`
	Required    bool   `json:"required"`
}

type Definition struct {
	Type               Type       `json:"id"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	DefaultTemplate    string     `json:"defaultTemplate"`
	RequiredVariables  []string   `json:"requiredVariables"`
	AvailableVariables []Variable `json:"availableVariables"`
	Category           Category   `json:"category"`
}

// Examples maps every available variable to its example value.
func (d *Definition) Examples() map[string]any {
	out := make(map[string]any, len(d.AvailableVariables))
	for _, v := range d.AvailableVariables {
		out[v.Key] = v.Example
	}
	return out
}

func (d *Definition) hasVariable(key string) bool {
	for _, v := range d.AvailableVariables {
		if v.Key == key {
			return true
		}
	}
	return false
}

var (
	varTaskTitle  = Variable{Key: "taskTitle", Description: "عنوان المشروع أو البند", Example: "كروت شخصية", Required: true}
	varClientName = Variable{Key: "clientName", Description: "اسم العميل", Example: "شركة النور", Required: true}
	varClientCode = Variable{Key: "clientCode", Description: "كود العميل", Example: "C-104", Required: true}
	varTaskLabel  = Variable{Key: "taskLabel", Description: "نوع المهمة (المشروع / البند)", Example: "البند", Required: true}
	varSize       = Variable{Key: "size", Description: "المقاس", Example: "A4", Required: true}
	varPrinting   = Variable{Key: "printingType", Description: "نوع الطباعة", Example: "Offset", Required: true}
	varParent     = Variable{Key: "parentTitle", Description: "عنوان المشروع الرئيسي", Example: "هوية بصرية"}
	varDeadline   = Variable{Key: "deadline", Description: "موعد التسليم", Example: "2025-03-20"}
	varUrgencyOpt = Variable{Key: "urgency", Description: "الأولوية", Example: "Urgent"}
)

func required(v Variable) Variable {
	v.Required = true
	return v
}

func optional(v Variable) Variable {
	v.Required = false
	return v
}

func build(d Definition) *Definition {
	for _, v := range d.AvailableVariables {
		if v.Required {
			d.RequiredVariables = append(d.RequiredVariables, v.Key)
		}
	}
	return &d
}

// DefaultDefinitions returns the built-in template set in display order.
func DefaultDefinitions() []*Definition {
	return []*Definition{
		build(Definition{
			Type:            NewProject,
			Name:            "مشروع جديد",
			Description:     "يُرسل عند إنشاء مشروع رئيسي جديد",
			DefaultTemplate: "🆕 *مشروع جديد*\n\n📌 المشروع: {taskTitle}\n👤 العميل: {clientName}\n🔢 كود العميل: {clientCode}\n📊 الحالة: {status}\n⚡ الأولوية: {urgency}",
			AvailableVariables: []Variable{
				varTaskTitle, varClientName, varClientCode,
				{Key: "status", Description: "الحالة الحالية", Example: "قيد الانتظار", Required: true},
				required(varUrgencyOpt),
				varDeadline,
			},
			Category: CategoryTask,
		}),
		build(Definition{
			Type:            NewSubtask,
			Name:            "بند جديد",
			Description:     "يُرسل عند إضافة بند إلى مشروع",
			DefaultTemplate: "➕ *بند جديد*\n\n📋 البند: {taskTitle}\n👤 العميل: {clientName}\n🔢 كود العميل: {clientCode}\n📊 الحالة: {status}",
			AvailableVariables: []Variable{
				varTaskTitle, varClientName, varClientCode,
				{Key: "status", Description: "الحالة الحالية", Example: "قيد التصميم", Required: true},
				varParent, varUrgencyOpt, varDeadline,
			},
			Category: CategoryTask,
		}),
		build(Definition{
			Type:            SubtaskUpdate,
			Name:            "تعديل بند",
			Description:     "يُرسل عند تعديل بيانات بند",
			DefaultTemplate: "✏️ *تعديل بند*\n\n📋 البند: {taskTitle}\n👤 العميل: {clientName}\n🔢 كود العميل: {clientCode}\n📏 المقاس: {size}\n🖨️ نوع الطباعة: {printingType}",
			AvailableVariables: []Variable{
				varTaskTitle, varClientName, varClientCode, varSize, varPrinting, varParent,
			},
			Category: CategoryTask,
		}),
		build(Definition{
			Type:            SubtaskSpecsUpdate,
			Name:            "تعديل مواصفات",
			Description:     "يُرسل عند تغيير المقاس أو نوع الطباعة لبند",
			DefaultTemplate: "⚙️ *تعديل مواصفات*\n\n📋 البند: {taskTitle}\n👤 العميل: {clientName}\n🔢 كود العميل: {clientCode}\n📏 المقاس: {size}\n🖨️ نوع الطباعة: {printingType}",
			AvailableVariables: []Variable{
				varTaskTitle, varClientName, varClientCode, varSize, varPrinting, varParent,
			},
			Category: CategoryTask,
		}),
		build(Definition{
			Type:            StatusChange,
			Name:            "تحديث الحالة",
			Description:     "يُرسل عند اكتمال التصميم أو المونتاج",
			DefaultTemplate: "🔄 *تحديث الحالة*\n\n📋 البند: {taskTitle}\n👤 العميل: {clientName}\n🔢 كود العميل: {clientCode}\n✅ {statusMessage}\n📊 الحالة السابقة: {oldStatus}\n📊 الحالة الجديدة: {newStatus}",
			AvailableVariables: []Variable{
				varTaskTitle, varClientName, varClientCode,
				{Key: "statusMessage", Description: "رسالة الحالة", Example: "تم تحديث الحالة", Required: true},
				{Key: "oldStatus", Description: "الحالة السابقة", Example: "قيد التصميم", Required: true},
				{Key: "newStatus", Description: "الحالة الجديدة", Example: "اكتمل التصميم", Required: true},
				optional(varTaskLabel), varParent,
			},
			Category: CategoryStatus,
		}),
		build(Definition{
			Type:            CommentAdded,
			Name:            "ملاحظة جديدة",
			Description:     "يُرسل عند إضافة ملاحظة",
			DefaultTemplate: "💬 *ملاحظة جديدة*\n\n📋 {taskLabel}: {taskTitle}\n👤 العميل: {clientName}\n🔢 كود العميل: {clientCode}\n📝 الملاحظة: {commentText}\n🔢 عدد الملاحظات: {commentCount}",
			AvailableVariables: []Variable{
				varTaskTitle, varClientName, varClientCode, varTaskLabel,
				{Key: "commentText", Description: "نص الملاحظة", Example: "يرجى تكبير الشعار", Required: true},
				{Key: "commentCount", Description: "عدد الملاحظات", Example: "3", Required: true},
				varParent,
			},
			Category: CategoryComment,
		}),
		build(Definition{
			Type:            ReplyAdded,
			Name:            "رد جديد",
			Description:     "يُرسل عند الرد على ملاحظة",
			DefaultTemplate: "↩️ *رد جديد*\n\n📋 {taskLabel}: {taskTitle}\n👤 العميل: {clientName}\n🔢 كود العميل: {clientCode}\n💬 الرد: {commentText}",
			AvailableVariables: []Variable{
				varTaskTitle, varClientName, varClientCode, varTaskLabel,
				{Key: "commentText", Description: "نص الرد", Example: "تم التعديل", Required: true},
				varParent,
			},
			Category: CategoryComment,
		}),
		build(Definition{
			Type:            CommentResolved,
			Name:            "تم حل الملاحظة",
			Description:     "يُرسل عند حل ملاحظة",
			DefaultTemplate: "✅ *تم حل الملاحظة*\n\n📋 {taskLabel}: {taskTitle}\n👤 العميل: {clientName}\n🔢 كود العميل: {clientCode}\n🎉 تم حل الملاحظة بنجاح",
			AvailableVariables: []Variable{
				varTaskTitle, varClientName, varClientCode, varTaskLabel,
				{Key: "commentText", Description: "نص الملاحظة", Example: "يرجى تكبير الشعار"},
				varParent,
			},
			Category: CategoryComment,
		}),
		build(Definition{
			Type:            AttachmentAdded,
			Name:            "مرفقات جديدة",
			Description:     "يُرسل عند رفع ملفات",
			DefaultTemplate: "📎 *مرفقات جديدة*\n\n📋 {taskLabel}: {taskTitle}\n👤 العميل: {clientName}\n🔢 كود العميل: {clientCode}\n📁 عدد المرفقات: {attachmentCount}\n📄 الملفات: {attachmentNames}",
			AvailableVariables: []Variable{
				varTaskTitle, varClientName, varClientCode, varTaskLabel,
				{Key: "attachmentCount", Description: "عدد المرفقات", Example: "2", Required: true},
				{Key: "attachmentNames", Description: "أسماء الملفات", Example: "front.pdf، back.pdf", Required: true},
				varParent,
			},
			Category: CategoryFile,
		}),
	}
}
