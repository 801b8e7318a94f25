package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jjenkins/publiccomment/internal/model"
	"github.com/jjenkins/publiccomment/internal/service"
)

const adminNotFound = "Admin not found"

func ListAdminsHandler(svc *service.AdminService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		admins, err := svc.List(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "admins": admins})
	}
}

func CreateAdminHandler(svc *service.AdminService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req service.CreateAdminRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody()
		}

		admin, err := svc.Create(c.UserContext(), req)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": "Admin created successfully",
			"admin":   admin,
		})
	}
}

func UpdateAdminHandler(svc *service.AdminService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var u model.AdminUpdate
		if err := c.BodyParser(&u); err != nil {
			return badBody()
		}

		admin, err := svc.Update(c.UserContext(), c.Params("id"), u)
		if err != nil {
			return notFound(err, adminNotFound)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"message": "Admin updated successfully",
			"admin":   admin,
		})
	}
}

type passwordRequest struct {
	NewPassword string `json:"newPassword"`
}

func ChangeAdminPasswordHandler(svc *service.AdminService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req passwordRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody()
		}
		if req.NewPassword == "" {
			verr := &service.ValidationError{}
			verr.Add("newPassword", "New password is required")
			return verr
		}

		if err := svc.ChangePassword(c.UserContext(), c.Params("id"), req.NewPassword); err != nil {
			return notFound(err, adminNotFound)
		}
		return c.JSON(fiber.Map{"success": true, "message": "Password updated successfully"})
	}
}

func DeleteAdminHandler(svc *service.AdminService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), c.Params("id")); err != nil {
			return notFound(err, adminNotFound)
		}
		return c.JSON(fiber.Map{"success": true, "message": "Admin deleted successfully"})
	}
}
