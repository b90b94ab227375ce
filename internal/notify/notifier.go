package notify

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/banshee-data/firewatch/internal/alert"
	"github.com/banshee-data/firewatch/internal/monitoring"
	"github.com/banshee-data/firewatch/internal/sensor"
)

// AlertMessage is the JSON body published for each alert.
type AlertMessage struct {
	Kind        alert.Kind    `json:"kind"`
	Status      sensor.Status `json:"status"`
	Message     string        `json:"message"`
	Temperature float64       `json:"temperature"`
	Humidity    float64       `json:"humidity"`
	GasLevel    float64       `json:"gas_level"`
	Timestamp   time.Time     `json:"timestamp"`
}

// ReadingMessage is the JSON body published for each reading when reading
// publication is enabled.
type ReadingMessage struct {
	Status sensor.Status  `json:"status"`
	sensor.Reading
}

// Notifier publishes effects under a topic prefix: alerts to <prefix>/alert
// and, optionally, every reading to <prefix>/reading.
type Notifier struct {
	pub             Publisher
	prefix          string
	qos             byte
	publishReadings bool
}

// NotifierOptions configures a Notifier.
type NotifierOptions struct {
	Topic           string
	QoS             byte
	PublishReadings bool
}

func NewNotifier(pub Publisher, opts NotifierOptions) *Notifier {
	prefix := strings.TrimRight(opts.Topic, "/")
	if prefix == "" {
		prefix = DefaultTopic
	}
	qos := opts.QoS
	if qos > 2 {
		qos = 2
	}
	return &Notifier{pub: pub, prefix: prefix, qos: qos, publishReadings: opts.PublishReadings}
}

// AlertTopic is where alert messages go.
func (n *Notifier) AlertTopic() string { return n.prefix + "/alert" }

// ReadingTopic is where reading messages go.
func (n *Notifier) ReadingTopic() string { return n.prefix + "/reading" }

// Apply publishes the effect. Failures are logged and dropped.
func (n *Notifier) Apply(e alert.Effect) {
	var (
		topic string
		body  any
	)
	switch {
	case e.IsAlert():
		topic = n.AlertTopic()
		body = AlertMessage{
			Kind:        e.Kind,
			Status:      e.Status,
			Message:     e.Message(),
			Temperature: e.Reading.Temperature,
			Humidity:    e.Reading.Humidity,
			GasLevel:    e.Reading.GasLevel,
			Timestamp:   e.Reading.Timestamp,
		}
	case e.Kind == alert.UpdateChart && n.publishReadings:
		topic = n.ReadingTopic()
		body = ReadingMessage{Status: e.Status, Reading: e.Reading}
	default:
		return
	}

	payload, err := json.Marshal(body)
	if err != nil {
		monitoring.Logf("notify: failed to marshal %s: %v", e.Kind, err)
		return
	}
	if err := n.pub.Publish(topic, n.qos, false, payload); err != nil {
		monitoring.Logf("notify: %v", err)
	}
}
