package timetable

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// store is an in-memory stand-in for the persisted timetable used to replay plans.
type store struct {
	rows   map[string]models.TimetableEntry
	nextID int
}

func newStore() *store {
	return &store{rows: make(map[string]models.TimetableEntry)}
}

func (s *store) all() []models.TimetableEntry {
	out := make([]models.TimetableEntry, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, row)
	}
	return out
}

func (s *store) apply(plan Plan) {
	for _, row := range plan.Delete {
		delete(s.rows, row.ID)
	}
	for _, row := range plan.Insert {
		s.nextID++
		row.ID = fmt.Sprintf("row-%03d", s.nextID)
		s.rows[row.ID] = row
	}
}

// save runs the full parse, validate, plan pipeline and applies the plan when accepted.
func (s *store) save(t *testing.T, selected []int64, values map[string]string, joint JointConfig) (Plan, []Violation) {
	t.Helper()
	structure := normalStructure(t)
	cells, parseErrs := ParseGrid(structure, selected, values)
	require.Empty(t, parseErrs)
	if violations := Validate(cells, joint); len(violations) > 0 {
		return Plan{}, violations
	}
	plan := PlanReplace(s.all(), structure, selected, BuildLessons(cells))
	s.apply(plan)
	return plan, nil
}

func TestScenarioSingleClassLesson(t *testing.T) {
	st := newStore()
	values := map[string]string{"cell_1_Mon_0800_0840_1": "10-100"}

	plan, violations := st.save(t, []int64{classF2N}, values, JointConfig{})
	require.Empty(t, violations)
	require.Len(t, plan.Insert, 1)
	require.Len(t, st.rows, 1)

	row := st.all()[0]
	assert.Equal(t, []int64{classF2N}, row.ClassGroupIDs())
	assert.Equal(t, values, RenderGrid(st.all(), normalStructure(t), []int64{classF2N}).Values())
}

func TestScenarioJointLessonSpansBothClassGroups(t *testing.T) {
	st := newStore()
	values := map[string]string{
		"cell_1_Mon_0800_0840_1": "10-100",
		"cell_2_Mon_0800_0840_1": "10-100",
	}
	_, violations := st.save(t, []int64{classF2N, classF2S}, values, jointMathF2())
	require.Empty(t, violations)
	require.Len(t, st.rows, 1)
	assert.Equal(t, []int64{classF2N, classF2S}, st.all()[0].ClassGroupIDs())
}

func TestScenarioNonJointSubjectLeavesStoreUntouched(t *testing.T) {
	st := newStore()
	_, violations := st.save(t, []int64{classF2N}, map[string]string{"cell_1_Tue_0800_0840_1": "11-101"}, JointConfig{})
	require.Empty(t, violations)
	before := st.all()

	values := map[string]string{
		"cell_1_Mon_0800_0840_1": "10-100",
		"cell_2_Mon_0800_0840_1": "10-100",
	}
	notJoint := NewJointConfig(nil, []models.JointClassGroupSet{{Name: "F2", Active: true, ClassGroupIDs: []int64{classF2N, classF2S}}})
	_, violations = st.save(t, []int64{classF2N, classF2S}, values, notJoint)
	require.Len(t, violations, 1)
	assert.Equal(t, ViolationJointSubject, violations[0].Kind)
	assert.ElementsMatch(t, before, st.all())
}

func TestScenarioSlotConflictRejected(t *testing.T) {
	st := newStore()
	values := map[string]string{
		"cell_1_Mon_0800_0840_1": "10-100",
		"cell_1_Mon_0800_0840_2": "11-100",
	}
	_, violations := st.save(t, []int64{classF2N}, values, jointMathF2())
	require.Len(t, violations, 1)
	assert.Equal(t, ViolationSlotConflict, violations[0].Kind)
	assert.Empty(t, st.rows)
}

func TestScenarioResaveIsIdempotent(t *testing.T) {
	st := newStore()
	values := map[string]string{
		"cell_1_Mon_0800_0840_1": "10-100",
		"cell_2_Mon_0800_0840_1": "10-100",
		"cell_1_Wed_1420_1500_2": "11-101",
	}
	selected := []int64{classF2N, classF2S}

	_, violations := st.save(t, selected, values, jointMathF2())
	require.Empty(t, violations)
	first := st.all()
	require.Len(t, first, 2)

	plan, violations := st.save(t, selected, values, jointMathF2())
	require.Empty(t, violations)
	assert.True(t, plan.Empty())
	assert.Len(t, plan.Kept, 2)
	assert.ElementsMatch(t, first, st.all())
	assert.Equal(t, values, RenderGrid(st.all(), normalStructure(t), selected).Values())
}

func TestScenarioEditingOneClassKeepsPartnerLinks(t *testing.T) {
	st := newStore()
	joint := jointMathF2()
	_, violations := st.save(t, []int64{classF2N, classF2S}, map[string]string{
		"cell_1_Mon_0800_0840_1": "10-100",
		"cell_2_Mon_0800_0840_1": "10-100",
	}, joint)
	require.Empty(t, violations)

	_, violations = st.save(t, []int64{classF2N}, map[string]string{}, joint)
	require.Empty(t, violations)
	require.Len(t, st.rows, 1)
	assert.Equal(t, []int64{classF2S}, st.all()[0].ClassGroupIDs())
}
