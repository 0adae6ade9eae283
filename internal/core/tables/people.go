package tables

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/hrm/internal/core"
)

func init() {
	registerEmployees()
	registerAttendance()
}

// EmploymentTypes are the accepted employment_type values.
var EmploymentTypes = []string{"full_time", "part_time", "contract", "intern"}

// AttendanceStatuses are the accepted attendance status values.
var AttendanceStatuses = []string{"present", "absent", "late", "leave", "remote"}

func registerEmployees() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:   "employees",
			Group: "People",
			Label: "Employees",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "employee_id", Type: core.FieldText, Required: true, Normalizer: NormalizeCode},
			{Name: "first_name", Type: core.FieldText, Required: true},
			{Name: "last_name", Type: core.FieldText, Required: true},
			{Name: "email", Type: core.FieldEmail, Required: true},
			{Name: "phone", Type: core.FieldText, Normalizer: NormalizePhone},
			{Name: "department", Type: core.FieldText},
			{Name: "job_title", Type: core.FieldText},
			{Name: "employment_type", Type: core.FieldEnum, EnumValues: EmploymentTypes, Normalizer: NormalizeEnum},
			{Name: "hire_date", Type: core.FieldDate},
			{Name: "salary", Type: core.FieldNumeric},
			{Name: "active", Type: core.FieldBool},
		},
	})
}

// Attendance is keyed by employee and day; a second upload for the same
// day replaces the earlier entry.
const upsertAttendanceSQL = `INSERT INTO attendance
	(employee_id, work_date, check_in, check_out, status, note, import_run_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (employee_id, work_date) DO UPDATE SET
	check_in = EXCLUDED.check_in,
	check_out = EXCLUDED.check_out,
	status = EXCLUDED.status,
	note = EXCLUDED.note,
	import_run_id = EXCLUDED.import_run_id`

func registerAttendance() {
	specs := []core.FieldSpec{
		{Name: "employee_id", Type: core.FieldText, Required: true, Normalizer: NormalizeCode},
		{Name: "date", DBColumn: "work_date", Type: core.FieldDate, Required: true},
		{Name: "check_in", Type: core.FieldText, Normalizer: NormalizeClock},
		{Name: "check_out", Type: core.FieldText, Normalizer: NormalizeClock},
		{Name: "status", Type: core.FieldEnum, Required: true, EnumValues: AttendanceStatuses, Normalizer: NormalizeEnum},
		{Name: "note", Type: core.FieldText},
	}

	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:       "attendance",
			Group:     "People",
			Label:     "Attendance",
			UniqueKey: []string{"employee_id", "date"},
		},
		FieldSpecs: specs,
		Insert: func(ctx context.Context, db core.DBTX, runID string, values []any) error {
			if len(values) != len(specs) {
				return fmt.Errorf("insert attendance: got %d values for %d columns", len(values), len(specs))
			}
			args := append(append(make([]any, 0, len(values)+1), values...), core.ToPgUUID(runID))
			_, err := db.Exec(ctx, upsertAttendanceSQL, args...)
			return err
		},
	})
}
