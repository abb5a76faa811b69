package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (POST /donations)
	SubmitDonation(w http.ResponseWriter, r *http.Request)
	// (GET /donations/available)
	ListAvailableDonations(w http.ResponseWriter, r *http.Request)
	// (GET /donations/{donationId})
	GetDonation(w http.ResponseWriter, r *http.Request, donationId openapi_types.UUID)
	// (POST /donations/{donationId}/review)
	ReviewDonation(w http.ResponseWriter, r *http.Request, donationId openapi_types.UUID)
	// (POST /donations/{donationId}/accept)
	AcceptDonation(w http.ResponseWriter, r *http.Request, donationId openapi_types.UUID)
	// (POST /donations/{donationId}/delivery)
	AdvanceDelivery(w http.ResponseWriter, r *http.Request, donationId openapi_types.UUID)
	// (POST /funding-requests)
	SubmitFundingRequest(w http.ResponseWriter, r *http.Request)
	// (GET /funding-requests/{requestId})
	GetFundingRequest(w http.ResponseWriter, r *http.Request, requestId openapi_types.UUID)
	// (POST /funding-requests/{requestId}/review)
	ReviewFundingRequest(w http.ResponseWriter, r *http.Request, requestId openapi_types.UUID)
	// (GET /pool/balance)
	GetPoolBalance(w http.ResponseWriter, r *http.Request)
	// (GET /contributions)
	ListContributions(w http.ResponseWriter, r *http.Request, params ListContributionsParams)
	// (POST /contributions)
	RecordContribution(w http.ResponseWriter, r *http.Request)
	// (GET /quota/{limitType})
	GetQuota(w http.ResponseWriter, r *http.Request, limitType string)
	// (POST /item-requests)
	SubmitItemRequest(w http.ResponseWriter, r *http.Request)
	// (POST /item-requests/{requestId}/close)
	CloseItemRequest(w http.ResponseWriter, r *http.Request, requestId openapi_types.UUID)
	// (GET /healthz)
	GetHealth(w http.ResponseWriter, r *http.Request)
}

// MiddlewareFunc wraps a single route handler.
type MiddlewareFunc func(http.Handler) http.Handler

// ServerInterfaceWrapper converts path and query parameters before calling the handler.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, fn func(w http.ResponseWriter, r *http.Request)) {
	var handler http.Handler = http.HandlerFunc(fn)
	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}
	handler.ServeHTTP(w, r)
}

// uuidPathParam binds a simple-style UUID path parameter.
func (siw *ServerInterfaceWrapper) uuidPathParam(w http.ResponseWriter, r *http.Request, name string) (openapi_types.UUID, bool) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: name, Err: err})
		return id, false
	}
	return id, true
}

func (siw *ServerInterfaceWrapper) SubmitDonation(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.SubmitDonation)
}

func (siw *ServerInterfaceWrapper) ListAvailableDonations(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.ListAvailableDonations)
}

func (siw *ServerInterfaceWrapper) GetDonation(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.uuidPathParam(w, r, "donationId")
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) { siw.Handler.GetDonation(w, r, id) })
}

func (siw *ServerInterfaceWrapper) ReviewDonation(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.uuidPathParam(w, r, "donationId")
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) { siw.Handler.ReviewDonation(w, r, id) })
}

func (siw *ServerInterfaceWrapper) AcceptDonation(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.uuidPathParam(w, r, "donationId")
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) { siw.Handler.AcceptDonation(w, r, id) })
}

func (siw *ServerInterfaceWrapper) AdvanceDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.uuidPathParam(w, r, "donationId")
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) { siw.Handler.AdvanceDelivery(w, r, id) })
}

func (siw *ServerInterfaceWrapper) SubmitFundingRequest(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.SubmitFundingRequest)
}

func (siw *ServerInterfaceWrapper) GetFundingRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.uuidPathParam(w, r, "requestId")
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) { siw.Handler.GetFundingRequest(w, r, id) })
}

func (siw *ServerInterfaceWrapper) ReviewFundingRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.uuidPathParam(w, r, "requestId")
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) { siw.Handler.ReviewFundingRequest(w, r, id) })
}

func (siw *ServerInterfaceWrapper) GetPoolBalance(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetPoolBalance)
}

func (siw *ServerInterfaceWrapper) ListContributions(w http.ResponseWriter, r *http.Request) {
	var params ListContributionsParams
	err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &params.Limit)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "limit", Err: err})
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) { siw.Handler.ListContributions(w, r, params) })
}

func (siw *ServerInterfaceWrapper) RecordContribution(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.RecordContribution)
}

func (siw *ServerInterfaceWrapper) GetQuota(w http.ResponseWriter, r *http.Request) {
	var limitType string
	err := runtime.BindStyledParameterWithOptions("simple", "limitType", chi.URLParam(r, "limitType"), &limitType,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "limitType", Err: err})
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) { siw.Handler.GetQuota(w, r, limitType) })
}

func (siw *ServerInterfaceWrapper) SubmitItemRequest(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.SubmitItemRequest)
}

func (siw *ServerInterfaceWrapper) CloseItemRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.uuidPathParam(w, r, "requestId")
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) { siw.Handler.CloseItemRequest(w, r, id) })
}

func (siw *ServerInterfaceWrapper) GetHealth(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetHealth)
}

// InvalidParamFormatError is passed to ErrorHandlerFunc when a parameter does not bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// Handler creates http.Handler with routing matching the API.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

// HandlerFromMux creates http.Handler with routing matching the API on r.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{BaseRouter: r})
}

// HandlerWithOptions creates http.Handler with additional options.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	base := options.BaseURL
	r.Group(func(r chi.Router) {
		r.Post(base+"/donations", wrapper.SubmitDonation)
		r.Get(base+"/donations/available", wrapper.ListAvailableDonations)
		r.Get(base+"/donations/{donationId}", wrapper.GetDonation)
		r.Post(base+"/donations/{donationId}/review", wrapper.ReviewDonation)
		r.Post(base+"/donations/{donationId}/accept", wrapper.AcceptDonation)
		r.Post(base+"/donations/{donationId}/delivery", wrapper.AdvanceDelivery)
		r.Post(base+"/funding-requests", wrapper.SubmitFundingRequest)
		r.Get(base+"/funding-requests/{requestId}", wrapper.GetFundingRequest)
		r.Post(base+"/funding-requests/{requestId}/review", wrapper.ReviewFundingRequest)
		r.Get(base+"/pool/balance", wrapper.GetPoolBalance)
		r.Get(base+"/contributions", wrapper.ListContributions)
		r.Post(base+"/contributions", wrapper.RecordContribution)
		r.Get(base+"/quota/{limitType}", wrapper.GetQuota)
		r.Post(base+"/item-requests", wrapper.SubmitItemRequest)
		r.Post(base+"/item-requests/{requestId}/close", wrapper.CloseItemRequest)
		r.Get(base+"/healthz", wrapper.GetHealth)
	})

	return r
}
