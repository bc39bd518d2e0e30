package events

import (
	"encoding/json"
	"fmt"
)

// SetStatusTransitionData sets the Data field with StatusTransitionData in a type-safe way.
func (e *Event) SetStatusTransitionData(data StatusTransitionData) error {
	dataMap, err := structToMap(data)
	if err != nil {
		return fmt.Errorf("failed to convert StatusTransitionData: %w", err)
	}
	e.Data = dataMap
	return nil
}

// GetStatusTransitionData retrieves StatusTransitionData from the Data field.
func (e *Event) GetStatusTransitionData() (*StatusTransitionData, error) {
	var data StatusTransitionData
	if err := mapToStruct(e.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse StatusTransitionData: %w", err)
	}
	return &data, nil
}

// SetRunCompletedData sets the Data field with RunCompletedData in a type-safe way.
func (e *Event) SetRunCompletedData(data RunCompletedData) error {
	dataMap, err := structToMap(data)
	if err != nil {
		return fmt.Errorf("failed to convert RunCompletedData: %w", err)
	}
	e.Data = dataMap
	return nil
}

// GetRunCompletedData retrieves RunCompletedData from the Data field.
func (e *Event) GetRunCompletedData() (*RunCompletedData, error) {
	var data RunCompletedData
	if err := mapToStruct(e.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse RunCompletedData: %w", err)
	}
	return &data, nil
}

// SetDegradationData sets the Data field with DegradationData in a type-safe way.
func (e *Event) SetDegradationData(data DegradationData) error {
	dataMap, err := structToMap(data)
	if err != nil {
		return fmt.Errorf("failed to convert DegradationData: %w", err)
	}
	e.Data = dataMap
	return nil
}

// GetDegradationData retrieves DegradationData from the Data field.
func (e *Event) GetDegradationData() (*DegradationData, error) {
	var data DegradationData
	if err := mapToStruct(e.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse DegradationData: %w", err)
	}
	return &data, nil
}

// structToMap converts a struct to map[string]interface{} using JSON marshaling.
func structToMap(data interface{}) (map[string]interface{}, error) {
	bytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	if err := json.Unmarshal(bytes, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// mapToStruct converts a map[string]interface{} to a struct using JSON unmarshaling.
func mapToStruct(dataMap map[string]interface{}, target interface{}) error {
	bytes, err := json.Marshal(dataMap)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, target)
}
