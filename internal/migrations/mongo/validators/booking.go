package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"ticket_id",
			"user",
			"bus",
			"seats",
			"total_amount",
			"booking_date",
			"status",
			"is_cancelled",
			"payment_method",
			"payment_status",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"ticket_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"user": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"bus": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"seats": bson.M{
				"bsonType": "array",
				"minItems": 1,
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"seat_number", "passenger_name", "passenger_age", "passenger_gender"},
					"properties": bson.M{
						"seat_number":      bson.M{"bsonType": "string"},
						"passenger_name":   bson.M{"bsonType": "string", "minLength": 1},
						"passenger_age":    bson.M{"bsonType": []string{"int", "long"}, "minimum": 1, "maximum": 120},
						"passenger_gender": bson.M{"bsonType": "string"},
					},
				},
			},

			"total_amount": bson.M{
				"bsonType": []string{"double", "int", "long", "decimal"},
				"minimum":  0,
			},

			"refund_amount": bson.M{
				"bsonType": []string{"double", "int", "long", "decimal"},
				"minimum":  0,
			},

			"booking_date": bson.M{
				"bsonType": "date",
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"confirmed",
					"cancelled",
					"refunded",
				},
			},

			"is_cancelled": bson.M{
				"bsonType": "bool",
			},

			"cancellation_date": bson.M{
				"bsonType": "date",
			},

			"payment_method": bson.M{
				"bsonType": "string",
				"enum":     []string{"upi", "qr"},
			},

			"payment_status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"completed",
					"refunded",
				},
			},

			"journey_date": bson.M{
				"bsonType": "date",
			},
		},
	},
}
