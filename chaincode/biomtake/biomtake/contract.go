package biomtake

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// SmartContract manages IoMT devices, on-ledger users and encrypted
// patient health records.
type SmartContract struct {
	contractapi.Contract
}

const vitalsEncryptionKey = "bioMTAKE_2024_encryption_key_32bytes!"

const (
	userKeyPrefix   = "USER_"
	recordKeyPrefix = "HEALTH_RECORD_"
)

// User roles recognized on the ledger.
const (
	RoleAdmin   = "admin"
	RoleDoctor  = "doctor"
	RolePatient = "patient"
	RoleDevice  = "device"
)

// User is an on-ledger user entry.
type User struct {
	UserID    string `json:"userId"`
	Role      string `json:"role"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
	IsActive  bool   `json:"isActive"`
}

// Device is a registered IoMT device asset.
type Device struct {
	HPBIM        string `json:"HPBIM"`
	PIDM         string `json:"PIDM"`
	RegisteredAt string `json:"registeredAt"`
	RegisteredBy string `json:"registeredBy"`
}

// HealthRecord is the stored form of a vitals record. The vitals
// themselves are encrypted at rest; only routing metadata stays in
// the clear.
type HealthRecord struct {
	RecordID      string `json:"recordId"`
	DeviceHPBIM   string `json:"deviceHpbm"`
	PatientID     string `json:"patientId"`
	DoctorID      string `json:"doctorId"`
	Timestamp     string `json:"timestamp"`
	EncryptedData string `json:"encryptedData"`
	Nonce         string `json:"nonce"`
}

// HealthData holds the vitals payload encrypted inside a record.
type HealthData struct {
	HeartRate     int     `json:"heartRate"`
	BloodPressure string  `json:"bloodPressure"`
	Temperature   float64 `json:"temperature"`
	OxygenLevel   float64 `json:"oxygenLevel"`
	Notes         string  `json:"notes"`
}

// encryptVitals XORs the payload against the key and a random nonce and
// returns both base64-encoded.
func encryptVitals(data []byte, key string) (string, string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", "", fmt.Errorf("failed to generate nonce: %v", err)
	}

	encrypted := make([]byte, len(data))
	for i := range data {
		encrypted[i] = data[i] ^ key[i%len(key)] ^ nonce[i%len(nonce)]
	}

	return base64.StdEncoding.EncodeToString(encrypted),
		base64.StdEncoding.EncodeToString(nonce), nil
}

func decryptVitals(encryptedData, nonce, key string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encryptedData)
	if err != nil {
		return nil, err
	}

	nonceBytes, err := base64.StdEncoding.DecodeString(nonce)
	if err != nil {
		return nil, err
	}
	if len(nonceBytes) == 0 {
		return nil, fmt.Errorf("empty nonce")
	}

	decrypted := make([]byte, len(data))
	for i := range data {
		decrypted[i] = data[i] ^ key[i%len(key)] ^ nonceBytes[i%len(nonceBytes)]
	}

	return decrypted, nil
}

// RegisterUser creates an on-ledger user entry. Registration fails for
// unknown roles and for user IDs already taken.
func (s *SmartContract) RegisterUser(ctx contractapi.TransactionContextInterface, userId, role, name, email string) error {
	switch role {
	case RoleAdmin, RoleDoctor, RolePatient, RoleDevice:
	default:
		return fmt.Errorf("invalid role: %s", role)
	}

	existingJSON, err := ctx.GetStub().GetState(userKeyPrefix + userId)
	if err != nil {
		return fmt.Errorf("failed to read from world state: %v", err)
	}
	if existingJSON != nil {
		return fmt.Errorf("user already exists: %s", userId)
	}

	user := User{
		UserID:    userId,
		Role:      role,
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().Format(time.RFC3339),
		IsActive:  true,
	}

	userJSON, err := json.Marshal(user)
	if err != nil {
		return err
	}

	return ctx.GetStub().PutState(userKeyPrefix+userId, userJSON)
}

// GetUser returns the on-ledger user entry for the ID.
func (s *SmartContract) GetUser(ctx contractapi.TransactionContextInterface, userId string) (*User, error) {
	userJSON, err := ctx.GetStub().GetState(userKeyPrefix + userId)
	if err != nil {
		return nil, fmt.Errorf("failed to read from world state: %v", err)
	}
	if userJSON == nil {
		return nil, fmt.Errorf("user not found: %s", userId)
	}

	var user User
	if err := json.Unmarshal(userJSON, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

// CreateAsset registers an IoMT device. The registering user must exist
// and be active; the device HPBIM must be new.
func (s *SmartContract) CreateAsset(ctx contractapi.TransactionContextInterface, hpbm, pidm, registeredBy string) error {
	user, err := s.GetUser(ctx, registeredBy)
	if err != nil {
		return fmt.Errorf("user not found: %s", registeredBy)
	}
	if !user.IsActive {
		return fmt.Errorf("user account is inactive: %s", registeredBy)
	}

	exists, err := s.DeviceExists(ctx, hpbm)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("IoMT device already exists: %s", hpbm)
	}

	device := Device{
		HPBIM:        hpbm,
		PIDM:         pidm,
		RegisteredAt: time.Now().Format(time.RFC3339),
		RegisteredBy: registeredBy,
	}

	deviceJSON, err := json.Marshal(device)
	if err != nil {
		return err
	}

	return ctx.GetStub().PutState(hpbm, deviceJSON)
}

// ReadAsset returns a device by HPBIM.
func (s *SmartContract) ReadAsset(ctx contractapi.TransactionContextInterface, hpbm string) (*Device, error) {
	deviceJSON, err := ctx.GetStub().GetState(hpbm)
	if err != nil {
		return nil, fmt.Errorf("failed to read from world state: %v", err)
	}
	if deviceJSON == nil {
		return nil, fmt.Errorf("IoMT device does not exist: %s", hpbm)
	}

	var device Device
	if err := json.Unmarshal(deviceJSON, &device); err != nil {
		return nil, err
	}

	return &device, nil
}

// DeviceExists reports whether a device is registered under the HPBIM.
func (s *SmartContract) DeviceExists(ctx contractapi.TransactionContextInterface, hpbm string) (bool, error) {
	deviceJSON, err := ctx.GetStub().GetState(hpbm)
	if err != nil {
		return false, fmt.Errorf("failed to read from world state: %v", err)
	}
	return deviceJSON != nil, nil
}

// GetAllAssets returns every registered device. User and health record
// entries live in the same key space under reserved prefixes and are
// skipped.
func (s *SmartContract) GetAllAssets(ctx contractapi.TransactionContextInterface) ([]*Device, error) {
	resultsIterator, err := ctx.GetStub().GetStateByRange("", "")
	if err != nil {
		return nil, err
	}
	defer resultsIterator.Close()

	devices := []*Device{}
	for resultsIterator.HasNext() {
		queryResponse, err := resultsIterator.Next()
		if err != nil {
			return nil, err
		}

		if strings.HasPrefix(queryResponse.Key, userKeyPrefix) ||
			strings.HasPrefix(queryResponse.Key, recordKeyPrefix) {
			continue
		}

		var device Device
		if err := json.Unmarshal(queryResponse.Value, &device); err != nil {
			continue
		}
		devices = append(devices, &device)
	}

	return devices, nil
}

// AddHealthRecord stores encrypted patient vitals. The creating user
// must hold the doctor role and the device must be registered.
func (s *SmartContract) AddHealthRecord(
	ctx contractapi.TransactionContextInterface,
	recordId string,
	deviceHpbm string,
	patientId string,
	doctorId string,
	heartRate int,
	bloodPressure string,
	temperature float64,
	oxygenLevel float64,
	notes string,
) error {
	doctor, err := s.GetUser(ctx, doctorId)
	if err != nil {
		return fmt.Errorf("doctor not found: %s", doctorId)
	}
	if doctor.Role != RoleDoctor {
		return fmt.Errorf("user is not a doctor: %s", doctorId)
	}

	exists, err := s.DeviceExists(ctx, deviceHpbm)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("IoMT device does not exist: %s", deviceHpbm)
	}

	healthData := HealthData{
		HeartRate:     heartRate,
		BloodPressure: bloodPressure,
		Temperature:   temperature,
		OxygenLevel:   oxygenLevel,
		Notes:         notes,
	}

	healthDataJSON, err := json.Marshal(healthData)
	if err != nil {
		return err
	}

	encryptedData, nonce, err := encryptVitals(healthDataJSON, vitalsEncryptionKey)
	if err != nil {
		return err
	}

	record := HealthRecord{
		RecordID:      recordId,
		DeviceHPBIM:   deviceHpbm,
		PatientID:     patientId,
		DoctorID:      doctorId,
		Timestamp:     time.Now().Format(time.RFC3339),
		EncryptedData: encryptedData,
		Nonce:         nonce,
	}

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return err
	}

	return ctx.GetStub().PutState(recordKeyPrefix+recordId, recordJSON)
}

// GetHealthRecordsByPatient returns the decrypted records of one
// patient.
func (s *SmartContract) GetHealthRecordsByPatient(ctx contractapi.TransactionContextInterface, patientId string) ([]map[string]interface{}, error) {
	return s.collectRecords(ctx, func(record *HealthRecord) bool {
		return record.PatientID == patientId
	})
}

// GetAllHealthRecords returns every decrypted record.
func (s *SmartContract) GetAllHealthRecords(ctx contractapi.TransactionContextInterface) ([]map[string]interface{}, error) {
	return s.collectRecords(ctx, func(*HealthRecord) bool { return true })
}

func (s *SmartContract) collectRecords(ctx contractapi.TransactionContextInterface, include func(*HealthRecord) bool) ([]map[string]interface{}, error) {
	resultsIterator, err := ctx.GetStub().GetStateByRange("", "")
	if err != nil {
		return nil, err
	}
	defer resultsIterator.Close()

	records := []map[string]interface{}{}
	for resultsIterator.HasNext() {
		queryResponse, err := resultsIterator.Next()
		if err != nil {
			return nil, err
		}

		if !strings.HasPrefix(queryResponse.Key, recordKeyPrefix) {
			continue
		}

		var record HealthRecord
		if err := json.Unmarshal(queryResponse.Value, &record); err != nil {
			continue
		}
		if !include(&record) {
			continue
		}

		decryptedData, err := decryptVitals(record.EncryptedData, record.Nonce, vitalsEncryptionKey)
		if err != nil {
			continue
		}

		var healthData HealthData
		if err := json.Unmarshal(decryptedData, &healthData); err != nil {
			continue
		}

		records = append(records, map[string]interface{}{
			"recordId":      record.RecordID,
			"deviceHpbm":    record.DeviceHPBIM,
			"patientId":     record.PatientID,
			"doctorId":      record.DoctorID,
			"timestamp":     record.Timestamp,
			"heartRate":     healthData.HeartRate,
			"bloodPressure": healthData.BloodPressure,
			"temperature":   healthData.Temperature,
			"oxygenLevel":   healthData.OxygenLevel,
			"notes":         healthData.Notes,
			"encrypted":     true,
		})
	}

	return records, nil
}
