package http

import (
	"bytes"
	"fmt"
	"net/http"
	"sync/atomic"

	"finsight/internal/auth"
	"finsight/internal/core"
	"finsight/internal/insight"
	"finsight/internal/log"
	"finsight/internal/services"
)

// pageData is the root object of every full page template.
type pageData struct {
	Title   string
	Page    string
	Session *auth.Session
	Data    any
}

type dashboardView struct {
	Dashboard services.Dashboard
	MonthName string
	Prev      monthRef
	Next      monthRef
}

type transactionListView struct {
	Transactions []core.Transaction
	Warning      string
	Type         core.TransactionType
}

// transactionsView backs the transactions page. With Type set the page
// lists one side of the ledger and the form only offers its categories.
type transactionsView struct {
	Today             string
	Type              core.TransactionType
	List              transactionListView
	IncomeCategories  []core.Category
	ExpenseCategories []core.Category
}

type transactionEditView struct {
	Tx                core.Transaction
	IncomeCategories  []core.Category
	ExpenseCategories []core.Category
}

type analysisView struct {
	Available       bool
	HasTransactions bool
}

type loginView struct {
	Register bool
	Email    string
	Error    string
}

func (s *Server) page(r *http.Request, title, name string, data any) pageData {
	p := pageData{Title: title, Page: name, Data: data}
	if sess, ok := auth.SessionFrom(r.Context()); ok {
		p.Session = &sess
	}
	return p
}

// renderString executes a named template into a string so that failures
// never leave a half-written response.
func (s *Server) renderString(name string, data any) (string, error) {
	if s.templates == nil {
		return "", fmt.Errorf("templates not loaded")
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	html, err := s.renderString(name, data)
	if err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err.Error(),
			log.FieldOperation, log.OpRender,
			"template", name)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	NewHTMXResponse().Status(status).BodyHTML(html).Write(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	params := ParseMonthParams(r.URL.Query(), s.now())

	d, err := s.txs.Dashboard(r.Context(), params.Year, params.Month)
	if err != nil {
		s.logFailure(r, "Dashboard failed", err, log.OpRead)
		status := statusFor(err)
		http.Error(w, publicMessage(status, err), status)
		return
	}

	prev, next := adjacentMonths(params.Year, params.Month)
	view := dashboardView{
		Dashboard: d,
		MonthName: params.Month.String(),
		Prev:      prev,
		Next:      next,
	}
	s.render(w, r, http.StatusOK, "dashboard", s.page(r, "Dashboard", "dashboard", view))
}

// parseTypeFilter reads the optional ?type= query value. Empty means both.
func parseTypeFilter(r *http.Request) (core.TransactionType, error) {
	v := r.URL.Query().Get("type")
	if v == "" {
		return "", nil
	}
	return core.ParseTransactionType(v)
}

func (s *Server) transactionList(r *http.Request, typ core.TransactionType) (transactionListView, error) {
	res, err := s.txs.List(r.Context())
	if err != nil {
		return transactionListView{}, err
	}
	out := newTransactionListResponse(res)
	txs := core.OfType(out.Transactions, typ)
	return transactionListView{
		Transactions: core.Recent(txs, len(txs)),
		Warning:      out.Warning,
		Type:         typ,
	}, nil
}

func transactionsTitle(typ core.TransactionType) string {
	switch typ {
	case core.Income:
		return "Income"
	case core.Expense:
		return "Expenses"
	default:
		return "Transactions"
	}
}

func (s *Server) handleTransactionsPage(w http.ResponseWriter, r *http.Request) {
	typ, err := parseTypeFilter(r)
	if err != nil {
		http.Error(w, "type must be income or expense", http.StatusBadRequest)
		return
	}

	list, err := s.transactionList(r, typ)
	if err != nil {
		s.logFailure(r, "List transactions failed", err, log.OpList)
		status := statusFor(err)
		http.Error(w, publicMessage(status, err), status)
		return
	}

	catalog := s.txs.Catalog()
	view := transactionsView{
		Today: core.DateOf(s.now()).String(),
		Type:  typ,
		List:  list,
	}
	if typ != core.Expense {
		view.IncomeCategories = catalog.ByType(core.Income)
	}
	if typ != core.Income {
		view.ExpenseCategories = catalog.ByType(core.Expense)
	}
	s.render(w, r, http.StatusOK, "transactions", s.page(r, transactionsTitle(typ), "transactions", view))
}

// handleTransactionList renders the list partial refreshed after writes.
func (s *Server) handleTransactionList(w http.ResponseWriter, r *http.Request) {
	typ, err := parseTypeFilter(r)
	if err != nil {
		BadRequestError("type must be income or expense").Write(w)
		return
	}

	list, err := s.transactionList(r, typ)
	if err != nil {
		s.logFailure(r, "List transactions failed", err, log.OpList)
		status := statusFor(err)
		ErrorResponse(status, "Could not load transactions").Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "transaction_list", list)
}

// handleUIEditTransaction renders the edit form for one transaction into
// the page's editor slot.
func (s *Server) handleUIEditTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.txs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.logFailure(r, "Get transaction failed", err, log.OpRead)
		status := statusFor(err)
		ErrorResponse(status, "Could not load transaction: "+publicMessage(status, err)).Write(w)
		return
	}

	catalog := s.txs.Catalog()
	s.render(w, r, http.StatusOK, "transaction_edit", transactionEditView{
		Tx:                tx,
		IncomeCategories:  catalog.ByType(core.Income),
		ExpenseCategories: catalog.ByType(core.Expense),
	})
}

func (s *Server) handleUIUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	tx, err := ParseTransactionForm(parser, s.now())
	if err != nil {
		UnprocessableEntityError("Invalid data: " + err.Error()).Write(w)
		return
	}

	updated, err := s.txs.Update(r.Context(), r.PathValue("id"), tx)
	if err != nil {
		s.logFailure(r, "Update transaction failed", err, log.OpUpdate)
		status := statusFor(err)
		ErrorResponse(status, "Could not update transaction: "+publicMessage(status, err)).Write(w)
		return
	}
	s.countWrite()

	msg := fmt.Sprintf("Updated %q (%s)", updated.Description, formatEuros(updated.Amount.Cents))
	NewHTMXResponse().
		TriggerTransactionUpdated(updated.ID, updated.Date.Year(), updated.Date.Month()).
		TriggerSuccessNotification(msg).
		Write(w)
}

func (s *Server) handleUICreateTransaction(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	tx, err := ParseTransactionForm(parser, s.now())
	if err != nil {
		UnprocessableEntityError("Invalid data: " + err.Error()).Write(w)
		return
	}

	created, err := s.txs.Create(r.Context(), tx)
	if err != nil {
		s.logFailure(r, "Create transaction failed", err, log.OpCreate)
		status := statusFor(err)
		ErrorResponse(status, "Could not save transaction: "+publicMessage(status, err)).Write(w)
		return
	}
	s.countWrite()

	msg := fmt.Sprintf("Saved %q (%s)", created.Description, formatEuros(created.Amount.Cents))
	NewHTMXResponse().
		TriggerTransactionCreated(created.Date.Year(), created.Date.Month()).
		TriggerFormReset().
		TriggerSuccessNotification(msg).
		Write(w)
}

func (s *Server) handleUIDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.txs.Delete(r.Context(), id); err != nil {
		s.logFailure(r, "Delete transaction failed", err, log.OpDelete)
		status := statusFor(err)
		ErrorResponse(status, "Could not delete transaction: "+publicMessage(status, err)).Write(w)
		return
	}
	s.countWrite()

	NewHTMXResponse().
		TriggerTransactionDeleted(id).
		TriggerSuccessNotification("Transaction deleted").
		Write(w)
}

// analysisIdle reports whether the idle panel can offer a run. An
// unreadable ledger still shows the form; the run reports the failure.
func (s *Server) analysisIdle(r *http.Request) analysisView {
	view := analysisView{Available: s.analysis.Available(), HasTransactions: true}
	if res, err := s.txs.List(r.Context()); err == nil {
		view.HasTransactions = len(res.Transactions) > 0
	}
	return view
}

func (s *Server) handleAnalysisPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "analysis", s.page(r, "Analysis", "analysis", s.analysisIdle(r)))
}

// handleUIAnalysis moves the analysis panel from requesting to either the
// result or the error state. Both states offer a reset back to idle.
func (s *Server) handleUIAnalysis(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	var req services.AnalysisRequest
	if hs := parser.Get("historicalSummary"); hs != "" {
		req.HistoricalSummary = &hs
	}

	result, err := s.runAnalysis(r.Context(), req)
	if err != nil {
		html, rerr := s.renderString("analysis_error", nil)
		if rerr != nil {
			html = `<div class="error">` + insight.ErrAnalysisFailed.Error() + `</div>`
		}
		NewHTMXResponse().
			TriggerErrorNotification("Analysis failed. Please try again.").
			BodyHTML(html).
			Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "analysis_result", result)
}

func (s *Server) handleAnalysisReset(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "analysis_idle", s.analysisIdle(r))
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.SessionFrom(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login", s.page(r, "Log in", "login", loginView{}))
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login", s.page(r, "Sign up", "register", loginView{Register: true}))
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.authForm(w, r, false)
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.authForm(w, r, true)
}

// authForm handles the plain HTML login and sign-up forms. A successful
// sign-up logs the new user in.
func (s *Server) authForm(w http.ResponseWriter, r *http.Request, register bool) {
	title, name := "Log in", "login"
	if register {
		title, name = "Sign up", "register"
	}
	fail := func(status int, email, msg string) {
		view := loginView{Register: register, Email: email, Error: msg}
		s.render(w, r, status, "login", s.page(r, title, name, view))
	}

	if s.auth == nil {
		fail(http.StatusServiceUnavailable, "", "Authentication is not configured.")
		return
	}
	if err := r.ParseForm(); err != nil {
		fail(http.StatusBadRequest, "", "Invalid request format")
		return
	}
	email := sanitizeInput(r.PostForm.Get("email"))
	password := r.PostForm.Get("password")

	if register {
		if _, err := s.auth.Register(r.Context(), email, password); err != nil {
			s.logAuthFailure(r, "Registration failed", err)
			fail(authStatus(err), email, authMessage(err))
			return
		}
	}

	sess, err := s.auth.Login(r.Context(), email, password)
	if err != nil {
		s.logAuthFailure(r, "Login failed", err)
		fail(authStatus(err), email, authMessage(err))
		return
	}
	s.setSessionCookie(w, r, sess)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogoutForm(w http.ResponseWriter, r *http.Request) {
	if sess, ok := auth.SessionFrom(r.Context()); ok && s.auth != nil {
		s.auth.Logout(r.Context(), sess)
	}
	clearSessionCookie(w, r)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) countWrite() {
	atomic.AddInt64(&s.appMetrics.transactionsWritten, 1)
}
