package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransitionRequestValidation(t *testing.T) {
	req := &TransitionRequest{}
	assert.Error(t, req.Validate())

	req.Status = "info_sent"
	assert.NoError(t, req.Validate())
}

func TestSnoozeRequestValidation(t *testing.T) {
	req := &SnoozeRequest{}
	assert.Error(t, req.Validate())

	req.Until = "not a date"
	assert.Error(t, req.Validate())

	req.Until = "2026-09-01T09:00:00+00:00"
	assert.NoError(t, req.Validate())

	until, err := req.UntilTime()
	assert.NoError(t, err)
	assert.Equal(t, 2026, until.Year())
}

func TestWaitingRequestValidation(t *testing.T) {
	req := &WaitingRequest{}
	assert.Error(t, req.Validate())

	waiting := false
	req.Waiting = &waiting
	assert.NoError(t, req.Validate())
}

func TestCreateDomainFilterRequestValidation(t *testing.T) {
	req := &CreateDomainFilterRequest{}
	assert.Error(t, req.Validate())

	req.Domain = "mailer.example.com"
	req.Category = "bogus"
	assert.Error(t, req.Validate())

	req.Category = "newsletter"
	assert.NoError(t, req.Validate())
}

func TestImportOrderRequestValidation(t *testing.T) {
	req := &ImportOrderRequest{}
	assert.Error(t, req.Validate())

	req.OrderID = "9001"
	assert.NoError(t, req.Validate())
}
