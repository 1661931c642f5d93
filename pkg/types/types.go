package types

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type ControlMode string

const (
	ControlModeManual ControlMode = "manual"
	ControlModeAuto   ControlMode = "auto"
)

type DataSource string

const (
	DataSourceSensorOnly DataSource = "sensor_only"
	DataSourceSensorGPS  DataSource = "sensor_gps"
	DataSourceGPSOnly    DataSource = "gps_only"
)

const (
	AlertTypeSensorDeviation string = "sensor_deviation"
	AlertTypeSystemStatus    string = "system_status"
)
