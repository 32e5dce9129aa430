package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to WithdrawalStatus
		want     bool
	}{
		{StatusRequested, StatusApproved, true},
		{StatusRequested, StatusRejected, true},
		{StatusRequested, StatusCancelled, true},
		{StatusApproved, StatusProcessing, true},
		{StatusApproved, StatusRejected, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},

		// skipping steps
		{StatusRequested, StatusProcessing, false},
		{StatusRequested, StatusCompleted, false},
		{StatusApproved, StatusCompleted, false},
		{StatusApproved, StatusCancelled, false},
		{StatusProcessing, StatusRejected, false},
		// backwards
		{StatusProcessing, StatusApproved, false},
		{StatusApproved, StatusRequested, false},
		// terminal
		{StatusCompleted, StatusProcessing, false},
		{StatusRejected, StatusApproved, false},
		{StatusCancelled, StatusRequested, false},
		{StatusFailed, StatusProcessing, false},
		// unknown
		{StatusRequested, WithdrawalStatus("SHIPPED"), false},
		{WithdrawalStatus("SHIPPED"), StatusApproved, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.want, CanTransition(tc.from, tc.to))
		})
	}
}
