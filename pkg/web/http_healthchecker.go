package web

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/atlassian/megatron/pkg/healthcheck"
)

type healthChecker struct {
	logger       logrus.FieldLogger
	healthChecks []healthcheck.HealthcheckFunc
	deepChecks   []healthcheck.HealthcheckFunc
}

// HealthReport is the body of the /healthcheck and /deepcheck responses.
type HealthReport struct {
	Status string   `json:"status"`
	OK     []string `json:"ok"`
	Failed []string `json:"failed"`
}

func runHealthChecks(checks []healthcheck.HealthcheckFunc) HealthReport {
	// Force it render as an array, not null
	report := HealthReport{
		Status: "healthy",
		OK:     []string{},
		Failed: []string{},
	}
	for _, check := range checks {
		msg, isHealthy := check()
		if isHealthy == healthcheck.Healthy {
			report.OK = append(report.OK, msg)
		} else {
			report.Failed = append(report.Failed, msg)
		}
	}
	if len(report.Failed) > 0 {
		report.Status = "unhealthy"
	}
	return report
}

func (hc *healthChecker) respond(resp http.ResponseWriter, checks []healthcheck.HealthcheckFunc) {
	report := runHealthChecks(checks)
	resp.Header().Set("content-type", "application/json")
	if len(report.Failed) > 0 {
		hc.logger.WithField("failed", report.Failed).Debug("health check failed")
		resp.WriteHeader(http.StatusInternalServerError)
	} else {
		resp.WriteHeader(http.StatusOK)
	}

	if err := jsoniter.NewEncoder(resp).Encode(report); err != nil {
		hc.logger.WithError(err).Warn("failed to write health report")
	}
}

// healthCheck reports if the process is consuming events.
func (hc *healthChecker) healthCheck(resp http.ResponseWriter, req *http.Request) {
	hc.respond(resp, hc.healthChecks)
}

// deepCheck reports on the state of every plugin client.
func (hc *healthChecker) deepCheck(resp http.ResponseWriter, req *http.Request) {
	hc.respond(resp, hc.deepChecks)
}
