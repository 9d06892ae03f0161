package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/internal/common"
	"agora/internal/session"
)

func at(hhmmss string) time.Time {
	tm, err := time.Parse("15:04:05", hhmmss)
	if err != nil {
		panic(err)
	}
	return tm
}

func TestClassify(t *testing.T) {
	assert.Equal(t, session.PreOpen, session.Classify(at("09:30:00")))
	assert.Equal(t, session.PreOpen, session.Classify(at("09:00:00")))
	assert.Equal(t, session.Continuous, session.Classify(at("09:30:01")))
	assert.Equal(t, session.Continuous, session.Classify(at("15:59:59")))
	assert.Equal(t, session.PostClose, session.Classify(at("16:00:00")))
	assert.Equal(t, session.PostClose, session.Classify(at("17:00:00")))
}

func TestController_RoutesIntoPerInstrumentBatches(t *testing.T) {
	c := session.NewController()

	preOpenOrder := common.Order{InstrumentID: "SIA", Time: at("09:00:00")}
	postCloseOrder := common.Order{InstrumentID: "SIA", Time: at("16:30:00")}
	continuousOrder := common.Order{InstrumentID: "SIA", Time: at("12:00:00")}

	require.Equal(t, session.PreOpen, c.Route(preOpenOrder))
	require.Equal(t, session.PostClose, c.Route(postCloseOrder))
	require.Equal(t, session.Continuous, c.Route(continuousOrder))

	assert.Len(t, c.PreOpenBatch("SIA"), 1)
	assert.Len(t, c.PostCloseBatch("SIA"), 1)
	assert.Equal(t, []string{"SIA"}, c.Instruments())
}
