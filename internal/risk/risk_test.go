package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-sim/internal/models"
	"github.com/noah-isme/campus-sim/internal/random"
)

func gpa(v float64) *float64 { return &v }

func TestScoreLowRiskStudent(t *testing.T) {
	res := Score(models.Student{}, 0.95, gpa(3.6))
	assert.InDelta(t, 0.05, res.AttendanceRisk, 1e-9)
	assert.InDelta(t, 0.30, res.AcademicSupportRisk, 1e-9)
	assert.Equal(t, models.RiskBucketLow, res.Bucket)
}

func TestScoreAppliesEveryPenalty(t *testing.T) {
	student := models.Student{
		IsFirstGen:            true,
		IsPellEligible:        true,
		WorkHoursPerWeek:      30,
		CommuteMinutes:        60,
		HasHousingInstability: true,
	}
	res := Score(student, 0.8, gpa(2.2))
	assert.InDelta(t, 0.2+0.15+0.10+0.20, res.AttendanceRisk, 1e-9)
	assert.InDelta(t, 0.30+0.25+0.15+0.10+0.10, res.AcademicSupportRisk, 1e-9)
	assert.Equal(t, models.RiskBucketHigh, res.Bucket)
}

func TestScoreClampsToUnitInterval(t *testing.T) {
	student := models.Student{IsFirstGen: true, IsPellEligible: true, WorkHoursPerWeek: 40, CommuteMinutes: 90, HasHousingInstability: true}
	res := Score(student, 0, gpa(0.5))
	assert.Equal(t, 1.0, res.AttendanceRisk)
	assert.Equal(t, 1.0, res.AcademicSupportRisk)

	res = Score(models.Student{}, 1.4, nil)
	assert.Equal(t, 0.0, res.AttendanceRisk)
}

func TestScoreGPATiers(t *testing.T) {
	cases := []struct {
		gpa  *float64
		want float64
	}{
		{nil, 0.30},
		{gpa(1.9), 0.70},
		{gpa(2.4), 0.55},
		{gpa(2.9), 0.40},
		{gpa(3.0), 0.30},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, Score(models.Student{}, 1, tc.gpa).AcademicSupportRisk, 1e-9)
	}
}

func TestBucketThresholds(t *testing.T) {
	assert.Equal(t, models.RiskBucketHigh, Bucket(0.6, 0.6))
	assert.Equal(t, models.RiskBucketMedium, Bucket(0.3, 0.3))
	assert.Equal(t, models.RiskBucketMedium, Bucket(0.5, 0.6))
	assert.Equal(t, models.RiskBucketLow, Bucket(0.1, 0.4))
}

func TestScoreInvariants(t *testing.T) {
	g := random.New(21)
	for i := 0; i < 1000; i++ {
		student := models.Student{
			IsFirstGen:            g.Bool(0.5),
			IsPellEligible:        g.Bool(0.5),
			WorkHoursPerWeek:      g.Int(0, 40),
			CommuteMinutes:        g.Int(0, 90),
			HasHousingInstability: g.Bool(0.2),
		}
		var g4 *float64
		if g.Bool(0.8) {
			g4 = gpa(g.Float(0, 4))
		}
		res := Score(student, g.Float(0, 1), g4)
		require.GreaterOrEqual(t, res.AttendanceRisk, 0.0)
		require.LessOrEqual(t, res.AttendanceRisk, 1.0)
		require.GreaterOrEqual(t, res.AcademicSupportRisk, 0.0)
		require.LessOrEqual(t, res.AcademicSupportRisk, 1.0)
		require.Equal(t, Bucket(res.AttendanceRisk, res.AcademicSupportRisk), res.Bucket)
	}
}

func TestDerate(t *testing.T) {
	assert.InDelta(t, 0.9, Derate(models.Student{}, 0.9), 1e-9)

	all := models.Student{WorkHoursPerWeek: 25, CommuteMinutes: 50, HasHousingInstability: true}
	assert.InDelta(t, 1.0*0.95*0.97*0.92, Derate(all, 1.0), 1e-9)
	assert.Equal(t, 0.0, Derate(all, -0.2))
	assert.Equal(t, 1.0, Derate(models.Student{}, 1.3))
}
