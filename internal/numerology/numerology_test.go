// AngelaMos | 2026
// numerology_test.go

package numerology

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/mystic-backend/internal/core"
)

func TestParseBirthDate(t *testing.T) {
	iso, err := ParseBirthDate("1990-07-15")
	require.NoError(t, err)

	br, err := ParseBirthDate(" 15/07/1990 ")
	require.NoError(t, err)

	assert.True(t, iso.Equal(br))

	_, err = ParseBirthDate("07-15-1990")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestReduceKeepsMasterNumbers(t *testing.T) {
	assert.Equal(t, 11, reduce(29))
	assert.Equal(t, 22, reduce(22))
	assert.Equal(t, 33, reduce(33))
	assert.Equal(t, 6, reduce(1995))
	assert.Equal(t, 7, reduce(7))
}

func TestLetterValue(t *testing.T) {
	assert.Equal(t, 1, letterValue('A'))
	assert.Equal(t, 9, letterValue('I'))
	assert.Equal(t, 1, letterValue('J'))
	assert.Equal(t, 8, letterValue('Z'))
}

func TestCalculate(t *testing.T) {
	birth := time.Date(1990, time.July, 15, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	// ANA: A=1 N=5 A=1
	reading, err := Calculate("Ana", birth, now)
	require.NoError(t, err)

	// 1+9+9+0 + 7 + 1+5 = 32
	assert.Equal(t, 5, reading.Destiny)
	assert.Equal(t, 2, reading.Soul)
	assert.Equal(t, 5, reading.Personality)
	assert.Equal(t, 7, reading.Expression)
	// day 1+5=6, month 7, year 2+0+2+6=10 -> 23 -> 5
	assert.Equal(t, 5, reading.PersonalYear)
}

func TestCalculateStripsAccents(t *testing.T) {
	birth := time.Date(1985, time.January, 2, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	plain, err := Calculate("Joao da Silva", birth, now)
	require.NoError(t, err)

	accented, err := Calculate("João  da Silva!", birth, now)
	require.NoError(t, err)

	assert.Equal(t, plain, accented)
}

func TestCalculateRejectsNameWithoutLetters(t *testing.T) {
	_, err := Calculate("123 ---", time.Now(), time.Now())
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestTopics(t *testing.T) {
	topics := Reading{Destiny: 1, Soul: 2, Personality: 3, Expression: 4, PersonalYear: 5}.Topics("Ana")
	require.Len(t, topics, 5)
	assert.Contains(t, topics[0], "Destiny number 1")
	assert.Contains(t, topics[4], "Personal year 5")
}
