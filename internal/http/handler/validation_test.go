package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"fleetgap.app/console/common/id"
	"fleetgap.app/console/internal/backend"
	"fleetgap.app/console/internal/console"
	"fleetgap.app/console/internal/http/handler"
	"fleetgap.app/console/internal/model"
)

var _ = Describe("ValidationHandler", func() {
	var (
		repo      *mockRepository
		client    *mockAnalysisClient
		list      *console.ListController
		validator *console.Validator
		router    *gin.Engine

		reportID int64
	)

	BeforeEach(func() {
		err := id.Init(1)
		Expect(err).NotTo(HaveOccurred())

		reportID = int64(42)
		repo = &mockRepository{}
		repo.listAlertsFn = func(_ context.Context, page int, _ backend.Filters) (*model.GapAlertPage, error) {
			return &model.GapAlertPage{
				Data: []model.GapAlert{
					{ID: 7, PDFReportID: &reportID, Status: model.AlertStatusOpen},
					{ID: 8, Status: model.AlertStatusOpen},
				},
				TotalCount: 2,
				TotalPages: 1,
				Page:       page,
			}, nil
		}

		client = &mockAnalysisClient{}
		list = console.NewListController(repo, console.ListControllerConfig{})
		list.Refresh(context.Background(), console.TriggerInitial)

		validator = console.NewValidator(client, console.ValidatorConfig{})
		h := handler.NewValidationHandler(validator, list)

		router = gin.New()
		router.POST("/validation/open", h.Open)
		router.GET("/validation/:reportID", h.State)
		router.DELETE("/validation/:reportID", h.Close)
		router.POST("/validation/:reportID/certify", h.Certify)
		router.POST("/validation/:reportID/escalate", h.Escalate)
		router.POST("/validation/:reportID/breach", h.Breach)
	})

	openSession := func() {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/validation/open", strings.NewReader(`{"alert_id":7}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusOK))
	}

	Describe("Open", func() {
		It("opens a session for an eligible alert", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/validation/open", strings.NewReader(`{"alert_id":7}`))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			var view console.SessionView
			Expect(json.Unmarshal(w.Body.Bytes(), &view)).To(Succeed())
			Expect(view.Phase).To(Equal(console.PhaseReady))
			Expect(view.ReportID).To(Equal(reportID))
		})

		It("returns 409 for an alert without a report", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/validation/open", strings.NewReader(`{"alert_id":8}`))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusConflict))
		})

		It("returns 404 for an alert not on the current page", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/validation/open", strings.NewReader(`{"alert_id":99}`))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 400 without an alert id", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/validation/open", strings.NewReader(`{}`))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("State", func() {
		It("returns the session view", func() {
			openSession()

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/validation/42", nil)
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("returns 404 for an unknown session", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/validation/42", nil)
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 400 for a malformed report id", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/validation/abc", nil)
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Certify", func() {
		It("returns 202 on an accepted dispatch", func() {
			openSession()

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/validation/42/certify", nil)
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusAccepted))

			var view console.SessionView
			Expect(json.Unmarshal(w.Body.Bytes(), &view)).To(Succeed())
			Expect(view.Phase).To(Equal(console.PhaseClosed))
		})

		It("returns 404 without a session", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/validation/42/certify", nil)
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 422 when the analysis has no gaps", func() {
			client.fetchAnalysisFn = func(_ context.Context, _ int64) (*model.GapAnalysis, error) {
				return &model.GapAnalysis{TotalGaps: 0}, nil
			}
			openSession()

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/validation/42/certify", nil)
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
		})

		It("maps an upstream failure to 502 with the backend message", func() {
			client.certifyFn = func(_ context.Context, _ int64, _ string) (*backend.ActionResult, error) {
				return nil, &backend.APIError{StatusCode: 503, Message: "maintenance window"}
			}
			openSession()

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/validation/42/certify", nil)
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadGateway))
			Expect(w.Body.String()).To(ContainSubstring("maintenance window"))
		})
	})

	Describe("Breach", func() {
		It("returns 428 without confirmation", func() {
			openSession()

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/validation/42/breach", strings.NewReader(`{"confirmed":false}`))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusPreconditionRequired))
		})

		It("returns 202 when confirmed", func() {
			openSession()

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/validation/42/breach", strings.NewReader(`{"confirmed":true,"notes":"gap unexplained"}`))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusAccepted))
		})
	})

	Describe("Escalate", func() {
		It("accepts an empty body", func() {
			openSession()

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/validation/42/escalate", nil)
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusAccepted))
		})
	})

	Describe("Close", func() {
		It("removes the session", func() {
			openSession()

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodDelete, "/validation/42", nil)
			router.ServeHTTP(w, req)
			Expect(w.Code).To(Equal(http.StatusNoContent))

			w = httptest.NewRecorder()
			req = httptest.NewRequest(http.MethodGet, "/validation/42", nil)
			router.ServeHTTP(w, req)
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})
})
