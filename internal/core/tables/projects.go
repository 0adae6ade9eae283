package tables

import "github.com/JonMunkholm/hrm/internal/core"

func init() {
	registerProjects()
	registerProjectFiles()
	registerProjectTasks()
	registerProjectFollowers()
}

// ProjectStatuses are the accepted project status values.
var ProjectStatuses = []string{"planned", "active", "on_hold", "completed", "cancelled"}

// TaskStatuses are the accepted task status values.
var TaskStatuses = []string{"todo", "in_progress", "review", "done"}

// TaskPriorities are the accepted task priority values.
var TaskPriorities = []string{"low", "medium", "high", "urgent"}

func registerProjects() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:   "projects",
			Group: "Projects",
			Label: "Projects",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "project_code", Type: core.FieldText, Required: true, Normalizer: NormalizeCode},
			{Name: "name", Type: core.FieldText, Required: true},
			{Name: "client_code", Type: core.FieldText, Normalizer: NormalizeCode},
			{Name: "status", Type: core.FieldEnum, Required: true, EnumValues: ProjectStatuses, Normalizer: NormalizeEnum},
			{Name: "start_date", Type: core.FieldDate},
			{Name: "end_date", Type: core.FieldDate},
			{Name: "budget", Type: core.FieldNumeric},
			{Name: "description", Type: core.FieldText},
		},
	})
}

func registerProjectFiles() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:   "project_files",
			Group: "Projects",
			Label: "Project Files",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "file_code", Type: core.FieldText, Required: true, Normalizer: NormalizeCode},
			{Name: "project_code", Type: core.FieldText, Required: true, Normalizer: NormalizeCode},
			{Name: "file_name", Type: core.FieldText, Required: true},
			{Name: "file_url", Type: core.FieldText},
			{Name: "uploaded_by", Type: core.FieldText, Normalizer: NormalizeCode},
			{Name: "uploaded_on", Type: core.FieldDate},
		},
	})
}

func registerProjectTasks() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:   "project_tasks",
			Group: "Projects",
			Label: "Tasks",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "task_code", Type: core.FieldText, Required: true, Normalizer: NormalizeCode},
			{Name: "project_code", Type: core.FieldText, Required: true, Normalizer: NormalizeCode},
			{Name: "title", Type: core.FieldText, Required: true},
			{Name: "assignee", Type: core.FieldText, Normalizer: NormalizeCode},
			{Name: "status", Type: core.FieldEnum, Required: true, EnumValues: TaskStatuses, Normalizer: NormalizeEnum},
			{Name: "priority", Type: core.FieldEnum, EnumValues: TaskPriorities, Normalizer: NormalizeEnum},
			{Name: "due_date", Type: core.FieldDate},
			{Name: "estimated_hours", Type: core.FieldNumeric},
		},
	})
}

func registerProjectFollowers() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:       "project_followers",
			Group:     "Projects",
			Label:     "Followers",
			UniqueKey: []string{"project_code", "employee_id"},
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "project_code", Type: core.FieldText, Required: true, Normalizer: NormalizeCode},
			{Name: "employee_id", Type: core.FieldText, Required: true, Normalizer: NormalizeCode},
			{Name: "notify", Type: core.FieldBool},
		},
	})
}
