package server

import (
	"context"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/wcrooks/studiobooks/internal/auth"
	"github.com/wcrooks/studiobooks/internal/handlers"
	"github.com/wcrooks/studiobooks/internal/httpx"
	"github.com/wcrooks/studiobooks/internal/logger"
	"github.com/wcrooks/studiobooks/internal/models"
	"github.com/wcrooks/studiobooks/internal/services"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB) http.Handler {
	mux := http.NewServeMux()

	// Ensure tokens for deleted users stop working and pick up staff
	// changes without reissuing tokens.
	auth.SetUserChecker(func(_ context.Context, uid uint) (bool, bool) {
		var u models.User
		if err := db.Select("id", "is_staff").First(&u, uid).Error; err != nil {
			return false, false
		}
		return true, u.IsStaff
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Services
	settingsSvc := services.NewSettingsService(db)
	invoiceSvc := services.NewInvoiceService(db, settingsSvc)
	paymentSvc := services.NewPaymentService(db)
	proposalSvc := services.NewProposalService(db)
	timerSvc := services.NewTimerService(db)
	projectSvc := services.NewProjectService(db)

	// Auth endpoints are the only unauthenticated API surface.
	ah := handlers.NewAuthHandler(db)
	mux.Handle("/api/auth/token", post(ah.Token))
	mux.Handle("/api/auth/refresh", post(ah.Refresh))

	authed := func(h http.Handler) http.Handler { return auth.Middleware(auth.RequireAuth(h)) }
	staff := func(h http.Handler) http.Handler { return auth.Middleware(auth.RequireStaff(h)) }

	// Clients (CRM) - staff only.
	ch := handlers.NewClientHandler(db)
	mux.Handle("/api/clients", staff(listCreate(ch.List, ch.Create)))
	mux.Handle("/api/clients/get", staff(get(ch.Get)))
	mux.Handle("/api/clients/update", staff(put(ch.Update)))
	mux.Handle("/api/clients/delete", staff(del(ch.Delete)))

	// Projects
	prh := handlers.NewProjectHandler(db, projectSvc)
	mux.Handle("/api/projects", authed(listCreateStaff(prh.List, prh.Create)))
	mux.Handle("/api/projects/get", authed(get(prh.Get)))
	mux.Handle("/api/projects/update", staff(put(prh.Update)))
	mux.Handle("/api/projects/delete", staff(del(prh.Delete)))
	mux.Handle("/api/projects/close", staff(post(prh.Close)))
	mux.Handle("/api/projects/reopen", staff(post(prh.Reopen)))

	// Invoices
	ih := handlers.NewInvoiceHandler(db, invoiceSvc)
	mux.Handle("/api/invoices", authed(listCreateStaff(ih.List, ih.Create)))
	mux.Handle("/api/invoices/get", authed(get(ih.Get)))
	mux.Handle("/api/invoices/update", staff(put(ih.Update)))
	mux.Handle("/api/invoices/send", staff(post(ih.Send)))
	mux.Handle("/api/invoices/cancel", staff(post(ih.Cancel)))
	mux.Handle("/api/invoices/mark-overdue", staff(post(ih.MarkOverdue)))
	mux.Handle("/api/invoices/items", staff(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut:
			ih.SaveItem(w, r)
		case http.MethodDelete:
			ih.DeleteItem(w, r)
		default:
			w.Header().Set("Allow", "POST,PUT,DELETE")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})))

	// Payments - reads for everyone in scope, writes staff only.
	pay := handlers.NewPaymentHandler(db, paymentSvc)
	mux.Handle("/api/payments", authed(get(pay.List)))
	mux.Handle("/api/payments/get", authed(get(pay.Get)))
	mux.Handle("/api/payments/record", staff(post(pay.Record)))
	mux.Handle("/api/payments/succeed", staff(post(pay.Succeed)))
	mux.Handle("/api/payments/fail", staff(post(pay.Fail)))
	mux.Handle("/api/payments/refund", staff(post(pay.Refund)))

	// Proposals
	prop := handlers.NewProposalHandler(db, proposalSvc)
	mux.Handle("/api/proposals", authed(listCreateStaff(prop.List, prop.Create)))
	mux.Handle("/api/proposals/get", authed(get(prop.Get)))
	mux.Handle("/api/proposals/update", staff(put(prop.Update)))
	mux.Handle("/api/proposals/delete", staff(del(prop.Delete)))
	mux.Handle("/api/proposals/send", staff(post(prop.Send)))
	mux.Handle("/api/proposals/duplicate", staff(post(prop.Duplicate)))
	mux.Handle("/api/proposals/accept", authed(post(prop.Accept)))
	mux.Handle("/api/proposals/reject", authed(post(prop.Reject)))

	// Expenses
	eh := handlers.NewExpenseHandler(db)
	mux.Handle("/api/expense-categories", staff(listCreate(eh.ListCategories, eh.CreateCategory)))
	mux.Handle("/api/expenses", staff(listCreate(eh.List, eh.Create)))
	mux.Handle("/api/expenses/get", staff(get(eh.Get)))
	mux.Handle("/api/expenses/update", staff(put(eh.Update)))
	mux.Handle("/api/expenses/delete", staff(del(eh.Delete)))
	mux.Handle("/api/expenses/approve", staff(post(eh.Approve)))

	// Time entries + timer
	th := handlers.NewTimeEntryHandler(db, timerSvc)
	mux.Handle("/api/time-entries", authed(listCreate(th.List, th.Create)))
	mux.Handle("/api/time-entries/get", authed(get(th.Get)))
	mux.Handle("/api/time-entries/update", authed(put(th.Update)))
	mux.Handle("/api/time-entries/delete", authed(del(th.Delete)))
	mux.Handle("/api/timer/status", authed(get(th.TimerStatus)))
	mux.Handle("/api/timer/start", authed(post(th.TimerStart)))
	mux.Handle("/api/timer/stop", authed(post(th.TimerStop)))

	// Plan files
	pfh := handlers.NewPlanFileHandler(db)
	mux.Handle("/api/plan-files", authed(listCreateStaff(pfh.List, pfh.Create)))
	mux.Handle("/api/plan-files/get", authed(get(pfh.Get)))
	mux.Handle("/api/plan-files/update", staff(put(pfh.Update)))
	mux.Handle("/api/plan-files/delete", staff(del(pfh.Delete)))

	// Settings
	sh := handlers.NewSettingsHandler(settingsSvc)
	mux.Handle("/api/settings", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			sh.Get(w, r)
		case http.MethodPut:
			if !auth.IsStaff(r.Context()) {
				httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			sh.Update(w, r)
		default:
			w.Header().Set("Allow", "GET,PUT")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})))

	return withRecover(withLogging(mux))
}

// Method-dispatch helpers keep the route table readable.
func method(m string, fn http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != m {
			w.Header().Set("Allow", m)
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
			return
		}
		fn(w, r)
	})
}

func get(fn http.HandlerFunc) http.Handler  { return method(http.MethodGet, fn) }
func post(fn http.HandlerFunc) http.Handler { return method(http.MethodPost, fn) }
func put(fn http.HandlerFunc) http.Handler  { return method(http.MethodPut, fn) }
func del(fn http.HandlerFunc) http.Handler  { return method(http.MethodDelete, fn) }

func listCreate(list, create http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			list(w, r)
		case http.MethodPost:
			create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})
}

// listCreateStaff lets any authenticated user list but restricts creation
// to staff.
func listCreateStaff(list, create http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			list(w, r)
		case http.MethodPost:
			if !auth.IsStaff(r.Context()) {
				httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.Handler) http.Handler {
	lg := logger.WithComponent("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		lg.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func withRecover(next http.Handler) http.Handler {
	lg := logger.WithComponent("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				lg.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("recovered")
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
