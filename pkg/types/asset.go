package types

// Device represents an IoMT device asset as stored on the ledger.
// Field names mirror the chaincode's JSON encoding.
type Device struct {
	HPBIM        string `json:"HPBIM"`
	PIDM         string `json:"PIDM"`
	RegisteredAt string `json:"registeredAt"`
	RegisteredBy string `json:"registeredBy"`
}

// RegisterDeviceRequest represents the device registration body
type RegisterDeviceRequest struct {
	HPBM string `json:"hpbm"`
	PIDM string `json:"pidm"`
}

// HealthRecordView is the decrypted health record shape the chaincode
// returns from its query functions.
type HealthRecordView struct {
	RecordID      string  `json:"recordId"`
	DeviceHPBM    string  `json:"deviceHpbm"`
	PatientID     string  `json:"patientId"`
	DoctorID      string  `json:"doctorId"`
	Timestamp     string  `json:"timestamp"`
	HeartRate     int     `json:"heartRate"`
	BloodPressure string  `json:"bloodPressure"`
	Temperature   float64 `json:"temperature"`
	OxygenLevel   float64 `json:"oxygenLevel"`
	Notes         string  `json:"notes"`
	Encrypted     bool    `json:"encrypted"`
}

// AddHealthRecordRequest represents the health record creation body.
// Numeric vitals arrive as numbers and are stringified before being
// handed to the ledger gateway.
type AddHealthRecordRequest struct {
	RecordID      string  `json:"recordId"`
	DeviceHPBM    string  `json:"deviceHpbm"`
	PatientID     string  `json:"patientId"`
	HeartRate     int     `json:"heartRate"`
	BloodPressure string  `json:"bloodPressure"`
	Temperature   float64 `json:"temperature"`
	OxygenLevel   float64 `json:"oxygenLevel"`
	Notes         string  `json:"notes,omitempty"`
}
