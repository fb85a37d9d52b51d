package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Library Portal API",
        "description": "Attendance, seat booking and reporting backend for the library portal",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Accounts, sessions and passwords"},
        {"name": "Attendance", "description": "Check-in and check-out flows"},
        {"name": "Dashboard", "description": "Per-student statistics"},
        {"name": "Library", "description": "Live occupancy"},
        {"name": "Bookings", "description": "Seat reservations"},
        {"name": "Feedback", "description": "Student feedback and review"},
        {"name": "Announcements", "description": "Admin notices"},
        {"name": "Students", "description": "Admin roster management"},
        {"name": "Reports", "description": "Attendance exports"},
        {"name": "Settings", "description": "Capacity and portal settings"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register student account",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "responses": {
                    "200": {"description": "Token pair"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Rotate refresh token",
                "responses": {"200": {"description": "New token pair"}}
            }
        },
        "/attendance/check-in": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Open an attendance record",
                "responses": {
                    "201": {"description": "Record created"},
                    "429": {"description": "Cooldown active"}
                }
            }
        },
        "/attendance/check-in/scan": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Check in via scanned QR token",
                "responses": {
                    "201": {"description": "Record created"},
                    "403": {"description": "Token belongs to another student"}
                }
            }
        },
        "/attendance/check-out": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Close the open attendance record",
                "responses": {
                    "200": {"description": "Record closed"},
                    "409": {"description": "Not checked in"}
                }
            }
        },
        "/attendance/status": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Current presence",
                "responses": {"200": {"description": "Status"}}
            }
        },
        "/dashboard/stats": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Goal progress, streak and weekly activity",
                "responses": {"200": {"description": "Stats"}}
            }
        },
        "/library/status": {
            "get": {
                "tags": ["Library"],
                "summary": "Occupancy snapshot",
                "responses": {"200": {"description": "Occupancy"}}
            }
        },
        "/bookings": {
            "get": {
                "tags": ["Bookings"],
                "summary": "List my bookings",
                "responses": {"200": {"description": "Bookings"}}
            },
            "post": {
                "tags": ["Bookings"],
                "summary": "Request a seat",
                "responses": {
                    "201": {"description": "Pending booking"},
                    "409": {"description": "Seat taken"}
                }
            }
        },
        "/feedback": {
            "get": {
                "tags": ["Feedback"],
                "summary": "List my feedback",
                "responses": {"200": {"description": "Feedback"}}
            },
            "post": {
                "tags": ["Feedback"],
                "summary": "Submit feedback",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/announcements": {
            "get": {
                "tags": ["Announcements"],
                "summary": "List announcements",
                "responses": {"200": {"description": "Announcements"}}
            }
        },
        "/admin/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "responses": {"200": {"description": "Roster"}}
            },
            "post": {
                "tags": ["Students"],
                "summary": "Create student account",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/admin/reports/export": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export attendance report",
                "responses": {"200": {"description": "File stream"}}
            }
        },
        "/admin/reports/jobs": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue attendance report",
                "responses": {"202": {"description": "Job accepted"}}
            }
        },
        "/admin/settings/capacity": {
            "put": {
                "tags": ["Settings"],
                "summary": "Update seat capacity",
                "responses": {"204": {"description": "Updated"}}
            }
        }
    },
    "definitions": {
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
