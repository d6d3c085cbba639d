package fittest

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/tormoder/fit"
)

// RunActivity encodes a running activity with one record per second from
// start: heart rate 140+i, cadence 88 rpm, 250 W, 0.3 m per record at
// 3 m/s, one lap and one session.
func RunActivity(start time.Time, records int) ([]byte, error) {
	header := fit.NewHeader(fit.V20, true)
	file, err := fit.NewFile(fit.FileTypeActivity, header)
	if err != nil {
		return nil, err
	}
	activity, err := file.Activity()
	if err != nil {
		return nil, err
	}

	for i := 0; i < records; i++ {
		rec := fit.NewRecordMsg()
		rec.Timestamp = start.Add(time.Duration(i) * time.Second)
		rec.HeartRate = uint8(140 + i%60)
		rec.Cadence = 88
		rec.Power = 250
		rec.Distance = uint32(i * 300)
		rec.Speed = 3000
		activity.Records = append(activity.Records, rec)
	}

	lap := fit.NewLapMsg()
	lap.Timestamp = start.Add(time.Duration(records) * time.Second)
	lap.StartTime = start
	lap.TotalElapsedTime = uint32(records * 1000)
	lap.AvgHeartRate = 142
	activity.Laps = append(activity.Laps, lap)

	session := fit.NewSessionMsg()
	session.Timestamp = lap.Timestamp
	session.StartTime = start
	session.Sport = fit.SportRunning
	session.TotalElapsedTime = uint32(records * 1000)
	session.TotalDistance = uint32(records * 300)
	session.AvgHeartRate = 142
	session.MaxHeartRate = 150
	session.AvgPower = 250
	activity.Sessions = append(activity.Sessions, session)

	var buf bytes.Buffer
	if err := fit.Encode(&buf, file, binary.LittleEndian); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
