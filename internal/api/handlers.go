package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/internal/auth"
	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/pkg/types"
)

// handleIndex describes the API surface
func (s *Service) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "BioMTAKE Healthcare System - Authentication Enabled",
		"endpoints": map[string]string{
			"auth":          "/api/auth/*",
			"devices":       "/api/devices",
			"healthRecords": "/api/health-records",
			"users":         "/api/users",
		},
	})
}

// handleHealth handles liveness checks
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleSystemInfo reports system metadata
func (s *Service) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"system":  "BioMTAKE Healthcare System",
		"version": "2.0.0",
		"features": []string{
			"Blockchain-based medical records",
			"Role-based access control",
			"User authentication",
			"Real-time data access",
		},
		"authentication": "JWT Token based",
	})
}

// handleLogin authenticates a credential and issues a session token.
func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cred, err := s.credentials.FindByEmail(req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrCredentialNotFound) {
			s.writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "Credential lookup failed")
		return
	}

	if !auth.VerifyPassword(cred.PasswordHash, req.Password) {
		s.log.Audit(cred.ID, "login", false, nil)
		s.writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.tokens.Issue(cred)
	if err != nil {
		s.log.WithError(err).Error("Failed to issue session token")
		s.writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	// Bookkeeping only; authorization is derived from the token.
	s.sessions.Record(cred.ID, token)
	s.log.Audit(cred.ID, "login", true, map[string]interface{}{"role": cred.Role})

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"token":   token,
		"user":    cred,
	})
}

// handleLogout removes the session bookkeeping entry. The token itself
// remains valid until its natural expiry.
func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	s.sessions.Remove(claims.UserID)
	s.log.Audit(claims.UserID, "logout", true, nil)

	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// handleMe returns the verified claims of the calling token.
func (s *Service) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"user": claims})
}

// handleRegisterUser registers a user on the ledger. Public by design:
// registration precedes authentication.
func (s *Service) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.UserID == "" || req.Name == "" || req.Email == "" {
		s.writeError(w, http.StatusBadRequest, "userId, name and email are required")
		return
	}
	if !req.Role.Valid() {
		s.writeError(w, http.StatusBadRequest, "invalid role: "+string(req.Role))
		return
	}

	_, err := s.ledger.Submit(r.Context(), "RegisterUser", req.UserID, string(req.Role), req.Name, req.Email)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"message": "User registered successfully on blockchain"})
}

// handleListDevices lists all registered device assets.
func (s *Service) handleListDevices(w http.ResponseWriter, r *http.Request) {
	result, err := s.ledger.Submit(r.Context(), "GetAllAssets")
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}

	devices := []types.Device{}
	if err := json.Unmarshal(result, &devices); err != nil {
		s.log.WithError(err).Error("Failed to decode device list from ledger")
		s.writeError(w, http.StatusInternalServerError, "Invalid response from blockchain")
		return
	}

	s.writeJSON(w, http.StatusOK, devices)
}

// handleRegisterDevice registers a device asset. The registering user
// is taken from the verified token, never from the body.
func (s *Service) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	var req types.RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.HPBM == "" || req.PIDM == "" {
		s.writeError(w, http.StatusBadRequest, "hpbm and pidm are required")
		return
	}

	_, err := s.ledger.Submit(r.Context(), "CreateAsset", req.HPBM, req.PIDM, claims.UserID)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Device registered successfully!"})
}

// handleAddHealthRecord records patient vitals. Numeric vitals are
// stringified here: the gateway transmits strings only.
func (s *Service) handleAddHealthRecord(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	var req types.AddHealthRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.RecordID == "" || req.DeviceHPBM == "" || req.PatientID == "" {
		s.writeError(w, http.StatusBadRequest, "recordId, deviceHpbm and patientId are required")
		return
	}

	_, err := s.ledger.Submit(r.Context(), "AddHealthRecord",
		req.RecordID,
		req.DeviceHPBM,
		req.PatientID,
		claims.UserID,
		strconv.Itoa(req.HeartRate),
		req.BloodPressure,
		strconv.FormatFloat(req.Temperature, 'f', -1, 64),
		strconv.FormatFloat(req.OxygenLevel, 'f', -1, 64),
		req.Notes,
	)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Health record added successfully!"})
}

// handleListHealthRecords lists health records. Patients see only their
// own records; doctors and admins see all.
func (s *Service) handleListHealthRecords(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	var (
		result []byte
		err    error
	)
	if claims.Role == types.RolePatient {
		result, err = s.ledger.Submit(r.Context(), "GetHealthRecordsByPatient", claims.UserID)
	} else {
		result, err = s.ledger.Submit(r.Context(), "GetAllHealthRecords")
	}
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}

	s.writeRecordList(w, result)
}

// handleHealthRecordsByPatient lists records for a named patient.
func (s *Service) handleHealthRecordsByPatient(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["patientId"]
	if patientID == "" {
		s.writeError(w, http.StatusBadRequest, "patientId is required")
		return
	}

	result, err := s.ledger.Submit(r.Context(), "GetHealthRecordsByPatient", patientID)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}

	s.writeRecordList(w, result)
}

func (s *Service) writeRecordList(w http.ResponseWriter, raw []byte) {
	records := []types.HealthRecordView{}
	if err := json.Unmarshal(raw, &records); err != nil {
		s.log.WithError(err).Error("Failed to decode health records from ledger")
		s.writeError(w, http.StatusInternalServerError, "Invalid response from blockchain")
		return
	}

	s.writeJSON(w, http.StatusOK, records)
}

// writeLedgerError maps gateway failures to HTTP responses. Ledger-
// originated failures carry the raw underlying error text for
// diagnostics.
func (s *Service) writeLedgerError(w http.ResponseWriter, err error) {
	var appErr *types.AppError
	if errors.As(err, &appErr) && appErr.Type == types.ErrorTypeGateway {
		message := appErr.Message
		if appErr.Cause != nil {
			message = appErr.Cause.Error()
		}
		s.writeError(w, http.StatusInternalServerError, "Blockchain error: "+message)
		return
	}

	s.log.WithError(err).Error("Ledger submission failed")
	s.writeError(w, http.StatusInternalServerError, "Internal server error")
}

// writeJSON writes a JSON response
func (s *Service) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeError writes an error response in the {"error": message} shape.
func (s *Service) writeError(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSON(w, statusCode, map[string]string{"error": message})
}
