package http

import (
	"math"
	"net/http"
)

func (s *Server) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := s.inventory.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]materialJSON, 0, len(materials))
	for _, m := range materials {
		out = append(out, materialToJSON(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateMaterial(w http.ResponseWriter, r *http.Request) {
	var req materialJSON
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.ID = 0

	id, err := s.inventory.Create(r.Context(), req.toMaterial())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	req.ID = id
	writeJSON(w, http.StatusCreated, req)
}

type adjustStockRequest struct {
	Delta float64 `json:"delta"`
}

func (s *Server) handleAdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req adjustStockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if math.IsNaN(req.Delta) || math.IsInf(req.Delta, 0) {
		writeError(w, http.StatusBadRequest, "delta must be finite")
		return
	}

	m, err := s.inventory.Adjust(r.Context(), id, req.Delta)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, materialToJSON(m))
}

func (s *Server) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	employees, err := s.employees.ListEmployees(r.Context(), activeOnly)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]employeeJSON, 0, len(employees))
	for _, e := range employees {
		out = append(out, employeeToJSON(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeJSON
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.ID = 0

	emp := req.toEmployee()
	if err := emp.Validate(); err != nil {
		writeServiceError(w, r, err)
		return
	}

	id, err := s.employees.CreateEmployee(r.Context(), emp)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	req.ID = id
	writeJSON(w, http.StatusCreated, req)
}
