// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package selection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testero/testero-api/blueprint"
	"github.com/testero/testero-api/testutil"
)

func TestSQLPool_Availability(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	testutil.SeedDomains(t, conn)

	testutil.CreateTestQuestion(t, conn, archCode, testutil.QuestionOpts{Explanation: "why"})
	testutil.CreateTestQuestion(t, conn, archCode, testutil.QuestionOpts{})
	testutil.CreateTestQuestion(t, conn, archCode, testutil.QuestionOpts{Status: "DRAFT"})
	testutil.CreateTestQuestion(t, conn, archCode, testutil.QuestionOpts{ReviewStatus: "NEEDS_ANSWER_FIX"})
	testutil.CreateTestQuestion(t, conn, archCode, testutil.QuestionOpts{Exam: "OTHER_EXAM"})
	testutil.CreateTestQuestion(t, conn, monCode, testutil.QuestionOpts{Explanation: "why"})

	pool := NewSQLPool(conn)
	ctx := context.Background()

	counts, err := pool.Availability(ctx, Filter{Exam: blueprint.PMLEExamCode})
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, DomainCount{DomainID: testutil.DomainID(archCode), Code: archCode, Name: "Architecting Low-Code ML Solutions", Count: 2}, counts[0])
	assert.Equal(t, monCode, counts[1].Code)
	assert.Equal(t, 1, counts[1].Count)

	counts, err = pool.Availability(ctx, Filter{Exam: blueprint.PMLEExamCode, RequireExplanation: true})
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, 1, counts[0].Count)

	counts, err = pool.Availability(ctx, Filter{Exam: blueprint.PMLEExamCode, DomainCodes: []string{monCode}})
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, monCode, counts[0].Code)
}

func TestSQLPool_Questions(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	testutil.SeedDomains(t, conn)

	id := testutil.CreateTestQuestion(t, conn, serveCode, testutil.QuestionOpts{CorrectLabel: "C", Topic: "Serving"})
	testutil.CreateTestQuestion(t, conn, autoCode, testutil.QuestionOpts{})

	pool := NewSQLPool(conn)
	qs, err := pool.Questions(context.Background(), Filter{Exam: blueprint.PMLEExamCode}, testutil.DomainID(serveCode))
	require.NoError(t, err)
	require.Len(t, qs, 1)

	q := qs[0]
	assert.Equal(t, id, q.ID)
	assert.Equal(t, serveCode, q.DomainCode)
	assert.Equal(t, "Serving", q.Topic)
	require.Len(t, q.Answers, 4)
	assert.Equal(t, "A", q.Answers[0].Label)
	assert.Equal(t, "C", q.CorrectLabel())
}

func TestSelectDiagnostic_SQLPool(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	testutil.SeedQuestionBank(t, conn, 5)

	res, err := SelectDiagnostic(context.Background(), NewSQLPool(conn), blueprint.PMLE(), 20, seeded())
	require.NoError(t, err)
	assert.Len(t, res.Questions, 20)
	for _, q := range res.Questions {
		assert.Len(t, q.Answers, 4)
		assert.NotEmpty(t, q.DomainCode)
	}
}
