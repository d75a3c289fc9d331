package validators

import "go.mongodb.org/mongo-driver/bson"

var BusValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"bus_number",
			"bus_name",
			"from",
			"to",
			"departure_time",
			"arrival_time",
			"price",
			"total_seats",
			"available_seats",
			"is_active",
			"seats",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"bus_number": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"bus_name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},

			"from": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"to": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"departure_time": bson.M{
				"bsonType": "string",
			},

			"arrival_time": bson.M{
				"bsonType": "string",
			},

			"departure_date": bson.M{
				"bsonType": "date",
			},

			"price": bson.M{
				"bsonType":         []string{"double", "int", "long", "decimal"},
				"exclusiveMinimum": true,
				"minimum":          0,
			},

			"total_seats": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
				"maximum":  99,
			},

			"available_seats": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"is_active": bson.M{
				"bsonType": "bool",
			},

			"seats": bson.M{
				"bsonType": []string{"array", "null"},
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"seat_number", "is_booked"},
					"properties": bson.M{
						"seat_number": bson.M{"bsonType": "string"},
						"is_booked":   bson.M{"bsonType": "bool"},
						"booked_by":   bson.M{"bsonType": "string"},
						"ticket_id":   bson.M{"bsonType": "string"},
						"held_at":     bson.M{"bsonType": "date"},
					},
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
