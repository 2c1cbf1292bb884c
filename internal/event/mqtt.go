package event

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTPublisher forwards call events to an MQTT broker so external consumers
// (CRM hooks, monitoring) can follow live calls without touching the bridge.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
	subID  int
	bus    *Bus
}

// NewMQTTPublisher connects to the broker and starts forwarding all call.*
// events as JSON to the given topic prefix (topic/<event type>).
func NewMQTTPublisher(bus *Bus, brokerURL, clientID, topic string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetConnectTimeout(10 * time.Second).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}

	p := &MQTTPublisher{client: client, topic: topic, bus: bus}
	p.subID = bus.Subscribe([]string{"call.*"}, p.publish)
	log.Printf("[MQTT] Publishing call events to %s at %s", topic, brokerURL)
	return p, nil
}

func (p *MQTTPublisher) publish(evt *Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}
	token := p.client.Publish(p.topic+"/"+evt.Type, 0, false, payload)
	token.Wait()
	if token.Error() != nil {
		log.Printf("[MQTT] Publish failed: %v", token.Error())
	}
}

// Close detaches from the bus and disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.bus.Unsubscribe(p.subID)
	p.client.Disconnect(1000)
}
