package main

type flagType int
type flagMap map[flagType]string

const (
	listenAddress flagType = iota
	servicePort
	controlPort

	configurationFile

	mqttBrokerURL
	mqttUser
	mqttPassword
	rabbitMQURL

	devmode
)

func defaultFlags() flagMap {
	return flagMap{
		listenAddress: "0.0.0.0",
		servicePort:   "8080",
		controlPort:   "8000",

		configurationFile: "/opt/diwise/config/lightmonitoring.yaml",

		mqttBrokerURL: "",
		mqttUser:      "",
		mqttPassword:  "",
		rabbitMQURL:   "",

		devmode: "false",
	}
}
