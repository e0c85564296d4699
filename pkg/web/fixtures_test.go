package web_test

import (
	"context"
	"testing"
	"time"

	"github.com/atlassian/megatron/pkg/healthcheck"
)

type checkProvider struct {
	health []healthcheck.HealthcheckFunc
	deep   []healthcheck.HealthcheckFunc
}

func (cp *checkProvider) HealthChecks() []healthcheck.HealthcheckFunc {
	return cp.health
}

func (cp *checkProvider) DeepChecks() []healthcheck.HealthcheckFunc {
	return cp.deep
}

func check(msg string, status healthcheck.HealthyStatus) healthcheck.HealthcheckFunc {
	return func() (string, healthcheck.HealthyStatus) {
		return msg, status
	}
}

func testContext(t *testing.T) (context.Context, func()) {
	ctxTest, completeTest := context.WithTimeout(context.Background(), 5*time.Second)
	go func() {
		<-ctxTest.Done()
		if ctxTest.Err() == context.DeadlineExceeded {
			t.Error("test timed out")
		}
	}()
	return ctxTest, completeTest
}
