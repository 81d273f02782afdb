package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-sim/internal/models"
	"github.com/noah-isme/campus-sim/internal/random"
)

// medianSource returns 0.5 forever, cancelling the symmetric variance terms.
type medianSource struct{}

func (medianSource) Next() float64 { return 0.5 }

type seqSource struct {
	values []float64
	i      int
}

func (s *seqSource) Next() float64 {
	v := s.values[s.i%len(s.values)]
	s.i++
	return v
}

func TestLetterBoundaries(t *testing.T) {
	assert.Contains(t, []string{"A", "A-"}, Letter(medianSource{}, 4.0))
	assert.Equal(t, "F", Letter(medianSource{}, 0.0))
}

func TestLetterPicksWithinBucket(t *testing.T) {
	// variance draw 0.5 cancels, second draw selects the bucket letter.
	assert.Equal(t, "B", Letter(&seqSource{values: []float64{0.5, 0.1}}, 3.0))
	assert.Equal(t, "B-", Letter(&seqSource{values: []float64{0.5, 0.9}}, 3.0))
}

func TestLetterClampsOutOfRangeTargets(t *testing.T) {
	assert.Contains(t, []string{"A", "A-"}, Letter(medianSource{}, 9))
	assert.Equal(t, "F", Letter(medianSource{}, -3))
}

func TestLetterAlwaysKnown(t *testing.T) {
	g := random.New(5)
	for i := 0; i < 500; i++ {
		letter := Letter(g, g.Float(-1, 5))
		_, ok := points[letter]
		require.True(t, ok, letter)
	}
}

func TestTargetStaysInRange(t *testing.T) {
	g := random.New(9)
	for i := 0; i < 500; i++ {
		v := Target(g, g.Float(0, 4), g.Float(0, 1))
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 4.0)
	}
	assert.InDelta(t, 3.0, Target(medianSource{}, 3.0, 0.85), 1e-9)
	assert.InDelta(t, 3.05, Target(medianSource{}, 3.0, 0.95), 1e-9)
}

func TestFinalTargetUsesMidtermDelta(t *testing.T) {
	mid := "A"
	assert.InDelta(t, 3.0, FinalTarget(medianSource{}, 3.0, 0.85, nil), 1e-9)
	assert.InDelta(t, 3.5, FinalTarget(medianSource{}, 3.0, 0.85, &mid), 1e-9)
}

func TestTally(t *testing.T) {
	var tally Tally
	assert.Nil(t, tally.GPA())
	assert.Equal(t, BaselineGPA, tally.GPAOr(BaselineGPA))

	tally.Add("A", 3)
	tally.Add("C", 3)
	tally.Add(Withdrawn, 3)
	tally.Add("F", 4)
	require.NotNil(t, tally.GPA())
	assert.InDelta(t, 18.0/10.0, *tally.GPA(), 1e-9)
	assert.Equal(t, 10, tally.CreditsAttempted)
	assert.Equal(t, 6, tally.CreditsEarned)
}

func TestTranscriptGrade(t *testing.T) {
	reg := models.SectionRegistration{ID: "r1", StudentID: "s1", PeriodID: "p1", CourseID: "c1", Credits: 3}

	graded := TranscriptGrade(reg, "B+")
	assert.Equal(t, 3, graded.CreditsAttempted)
	assert.Equal(t, 3, graded.CreditsEarned)
	assert.Equal(t, 3.3, graded.GradePoints)
	assert.Equal(t, models.GradeStatusFinal, graded.Status)

	withdrawn := TranscriptGrade(reg, Withdrawn)
	assert.Zero(t, withdrawn.CreditsAttempted)

	failed := TranscriptGrade(reg, "F")
	assert.Equal(t, 3, failed.CreditsAttempted)
	assert.Zero(t, failed.CreditsEarned)

	tallies := TallyTranscripts([]models.StudentTranscriptGrade{graded, withdrawn, failed})
	assert.InDelta(t, 3.3/2, *tallies["s1"].GPA(), 1e-9)
}
