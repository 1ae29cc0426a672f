package collector

// Wire format of the AirLink /v1/current_conditions endpoint. The device
// reports a data_structure_type of 6; older firmware reports type 5, which
// carries the same values under pm_10p0* names and is normalized on decode.

type wirePayload struct {
	Data  *wireData  `json:"data"`
	Error *wireError `json:"error"`
}

type wireError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type wireData struct {
	DID        string           `json:"did"`
	Name       string           `json:"name"`
	TS         int64            `json:"ts"`
	Conditions []wireConditions `json:"conditions"`
}

type wireConditions struct {
	LSID              *int64   `json:"lsid"`
	DataStructureType int      `json:"data_structure_type"`
	LastReportTime    *int64   `json:"last_report_time"`
	PM1Last           *float64 `json:"pm_1_last"`
	PM25Last          *float64 `json:"pm_2p5_last"`
	PM10Last          *float64 `json:"pm_10_last"`

	// Type-5 spelling of the PM10 instantaneous reading.
	PM10LastType5 *float64 `json:"pm_10p0_last"`

	// One-minute running average; only consulted to spot a sensor that
	// rebooted and is still reporting seconds-since-boot timestamps.
	PM1Avg *float64 `json:"pm_1"`
}

// normalize folds the type-5 field spellings into their type-6 slots.
func (c *wireConditions) normalize() {
	if c.DataStructureType != 5 {
		return
	}
	if c.PM10Last == nil {
		c.PM10Last = c.PM10LastType5
	}
	c.DataStructureType = 6
}
