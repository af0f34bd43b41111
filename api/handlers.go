package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"veritas/core"
	"veritas/gateway"
	"veritas/validate"
)

// maxRequestBody bounds request bodies to keep hostile payloads out of
// memory. 1MB covers any legitimate business record.
const maxRequestBody = 1 << 20

// validateRequest is the body of POST /api/v1/validate. The schema document
// is optional: when absent, the schema registered for module/operation is
// used, and when neither exists the schema phase is skipped.
type validateRequest struct {
	Module            string                 `json:"module"`
	Operation         core.Operation         `json:"operation"`
	Actor             string                 `json:"actor,omitempty"`
	SkipCrossModule   bool                   `json:"skip_cross_module,omitempty"`
	SkipBusinessRules bool                   `json:"skip_business_rules,omitempty"`
	Payload           map[string]interface{} `json:"payload"`
	Schema            json.RawMessage        `json:"schema,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Module == "" || req.Operation == "" {
		writeError(w, http.StatusBadRequest, "module and operation are required")
		return
	}

	vctx := core.ValidationContext{
		Module:            req.Module,
		Operation:         req.Operation,
		Actor:             req.Actor,
		SkipCrossModule:   req.SkipCrossModule,
		SkipBusinessRules: req.SkipBusinessRules,
	}

	var result *core.ValidationResult
	if len(req.Schema) > 0 {
		schema, err := validate.CompileSchema(req.Module+"/"+string(req.Operation), req.Schema)
		if err != nil {
			writeError(w, http.StatusBadRequest, "schema does not compile: "+err.Error())
			return
		}
		result = s.engine.Validate(r.Context(), req.Payload, schema, vctx)
	} else {
		result = s.engine.ValidateOperation(r.Context(), req.Payload, vctx)
	}

	// A rejected payload is still a successful validation call; the verdict
	// lives in the body, not the status code.
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGatewayValidate(w http.ResponseWriter, r *http.Request) {
	var req gateway.Request
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.gateway.ValidateRequest(&req))
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	moduleFilter := r.URL.Query().Get("module")
	if moduleFilter != "" && !core.IsKnownModule(moduleFilter) {
		writeError(w, http.StatusBadRequest, "unknown module "+moduleFilter)
		return
	}
	rules := s.registry.AllRules(moduleFilter)
	if rules == nil {
		rules = []core.CrossModuleValidationRule{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rules": rules, "count": len(rules)})
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var rule core.CrossModuleValidationRule
	if !s.decode(w, r, &rule) {
		return
	}
	id, err := s.registry.AddRule(rule)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rule, err := s.registry.GetRule(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "rule not found")
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var patch core.RulePatch
	if !s.decode(w, r, &patch) {
		return
	}
	if !s.registry.UpdateRule(id, patch) {
		writeError(w, http.StatusNotFound, "rule not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (s *Server) handleRegisterSchema(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	module, operation := vars["module"], core.Operation(vars["operation"])
	if !core.IsKnownModule(module) {
		writeError(w, http.StatusBadRequest, "unknown module "+module)
		return
	}
	switch operation {
	case core.OpCreate, core.OpUpdate, core.OpDelete:
	default:
		writeError(w, http.StatusBadRequest, "unknown operation "+string(operation))
		return
	}

	document, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read schema document")
		return
	}
	if err := s.engine.Schemas().Register(module, operation, document); err != nil {
		writeError(w, http.StatusBadRequest, "schema does not compile: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"registered": true})
}

// decode reads a JSON body with a size ceiling. Returns false after writing
// the error response.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
