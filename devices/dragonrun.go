package devices

// DragonRun returns the catalog entry for DragonRun running-dynamics pods.
func DragonRun() DeviceConfig {
	return DeviceConfig{
		DeviceID:      "dragonrun",
		DeviceName:    "DragonRun",
		FieldPrefix:   "dr_",
		DisplayPrefix: "DR_",
		Fields: []FieldMapping{
			{FieldName: "dr_timestamp", DisplayLabel: "Timestamp", Unit: "ms", Description: "Time point of the gait sample", Category: "basic"},
			{FieldName: "dr_distance", DisplayLabel: "Distance", Unit: "m", Description: "Cumulative running distance", Category: "basic"},
			{
				FieldName:          "dr_speed",
				DisplayLabel:       "Pace",
				Unit:               "min/km",
				Description:        "Current pace",
				Category:           "pace",
				StorageUnit:        "m/s",
				DisplayUnit:        "min/km",
				RequiresConversion: true,
				Precision:          2,
			},
			{FieldName: "dr_cadence", DisplayLabel: "Cadence", Unit: "spm", Description: "Steps per minute, both feet", Category: "dynamics"},
			{FieldName: "dr_stride", DisplayLabel: "Stride", Unit: "cm", Description: "Single step length", Category: "dynamics"},
			{FieldName: "dr_gct", DisplayLabel: "Ground contact time", Unit: "ms", Description: "Foot contact time per step", Category: "dynamics"},
			{FieldName: "dr_air_time", DisplayLabel: "Air time", Unit: "ms", Description: "Time with both feet off the ground per step", Category: "dynamics"},
			{FieldName: "dr_v_osc", DisplayLabel: "Vertical oscillation", Unit: "cm", Description: "Up and down travel of the center of mass", Category: "dynamics"},
			{FieldName: "dr_vertical_ratio", DisplayLabel: "Vertical ratio", Unit: "%", Description: "Vertical oscillation over stride length", Category: "dynamics"},
			{FieldName: "dr_SSL", DisplayLabel: "Step speed loss", Unit: "cm/s", Description: "Speed lost at each foot strike", Category: "dynamics"},
			{FieldName: "dr_SSL_percent", DisplayLabel: "Step speed loss ratio", Unit: "%", Description: "Step speed loss relative to current speed", Category: "dynamics"},
			{FieldName: "dr_vertical_power", DisplayLabel: "Vertical power", Unit: "W", Description: "Power spent against gravity", Category: "power"},
			{FieldName: "dr_propulsive_power", DisplayLabel: "Propulsive power", Unit: "W", Description: "Effective power in the direction of travel", Category: "power"},
			{FieldName: "dr_slope_power", DisplayLabel: "Slope power", Unit: "W", Description: "Power spent climbing or descending", Category: "power"},
			{FieldName: "dr_total_power", DisplayLabel: "Total power", Unit: "W", Description: "Vertical plus propulsive plus slope power", Category: "power"},
			{FieldName: "dr_LSS", DisplayLabel: "Leg spring stiffness", Unit: "kN/m", Description: "Elastic coefficient of the leg", Category: "biomechanics"},
			{FieldName: "dr_v_ILR", DisplayLabel: "Vertical impact loading rate", Unit: "bw/s", Description: "Vertical impact loading rate", Category: "impact"},
			{FieldName: "dr_h_ILR", DisplayLabel: "Horizontal impact loading rate", Unit: "bw/s", Description: "Horizontal impact loading rate", Category: "impact"},
			{FieldName: "dr_v_PIF", DisplayLabel: "Vertical peak impact", Unit: "g", Description: "Peak vertical acceleration at foot strike", Category: "impact"},
			{FieldName: "dr_h_PIF", DisplayLabel: "Horizontal peak impact", Unit: "g", Description: "Peak horizontal acceleration at foot strike", Category: "impact"},
			{FieldName: "dr_body_X_PIF", DisplayLabel: "Sensor X impact", Unit: "g", Description: "Peak impact on the sensor X axis", Category: "impact"},
			{FieldName: "dr_body_Y_PIF", DisplayLabel: "Sensor Y impact", Unit: "g", Description: "Peak impact on the sensor Y axis", Category: "impact"},
			{FieldName: "dr_body_Z_PIF", DisplayLabel: "Sensor Z impact", Unit: "g", Description: "Peak impact on the sensor Z axis", Category: "impact"},
		},
		Aliases: map[string]string{
			"dr_stance":        "dr_gct",
			"dr_air":           "dr_air_time",
			"dr_at":            "dr_air_time",
			"dr_vertical_osc":  "dr_v_osc",
			"dr_vert_osc":      "dr_v_osc",
			"dr_prop_power":    "dr_propulsive_power",
			"dr_ssl":           "dr_SSL",
			"dr_ssl%":          "dr_SSL_percent",
			"dr_SSL%":          "dr_SSL_percent",
			"dr_lss":           "dr_LSS",
			"dr_v_ilr":         "dr_v_ILR",
			"dr_h_ilr":         "dr_h_ILR",
			"dr_v_pif":         "dr_v_PIF",
			"dr_h_pif":         "dr_h_PIF",
			"dr_body_x_pif":    "dr_body_X_PIF",
			"dr_body_y_pif":    "dr_body_Y_PIF",
			"dr_body_z_pif":    "dr_body_Z_PIF",
			"dr_slop_power":    "dr_slope_power",
		},
	}
}
