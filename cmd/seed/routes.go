package main

import (
	"errors"
	"fmt"
	"os"

	"geobus/pkg/model"

	"gopkg.in/yaml.v3"
)

// routeTemplate is one entry of a routes file:
//
//	routes:
//	  - bus_number: MH01-1001
//	    bus_name: Express Line
//	    from: Mumbai
//	    to: Pune
//	    departure_time: "20:00"
//	    arrival_time: "23:00"
//	    price: 500
type routeTemplate struct {
	BusNumber     string  `yaml:"bus_number"`
	BusName       string  `yaml:"bus_name"`
	Image         string  `yaml:"image"`
	From          string  `yaml:"from"`
	To            string  `yaml:"to"`
	DepartureTime string  `yaml:"departure_time"`
	ArrivalTime   string  `yaml:"arrival_time"`
	Price         float64 `yaml:"price"`
	TotalSeats    int     `yaml:"total_seats"`
}

type routeFile struct {
	Routes []routeTemplate `yaml:"routes"`
}

func (rt routeTemplate) bus() model.Bus {
	return model.Bus{
		BusNumber:     rt.BusNumber,
		BusName:       rt.BusName,
		Image:         rt.Image,
		From:          rt.From,
		To:            rt.To,
		DepartureTime: rt.DepartureTime,
		ArrivalTime:   rt.ArrivalTime,
		Price:         rt.Price,
		TotalSeats:    rt.TotalSeats,
		IsActive:      true,
	}
}

func parseRoutes(data []byte) ([]model.Bus, error) {
	var file routeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse routes: %w", err)
	}
	if len(file.Routes) == 0 {
		return nil, errors.New("routes file lists no routes")
	}

	buses := make([]model.Bus, 0, len(file.Routes))
	for i, rt := range file.Routes {
		if rt.BusNumber == "" || rt.From == "" || rt.To == "" {
			return nil, fmt.Errorf("route #%d: bus_number, from and to are required", i+1)
		}
		buses = append(buses, rt.bus())
	}
	return buses, nil
}

func loadRoutes(path string) ([]model.Bus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseRoutes(data)
}
