package postgresql

import "github.com/dukex/taskflow/pkg/persistence/sqlbase"

func migrations() []sqlbase.Migration {
	return []sqlbase.Migration{
		{
			Version: 1,
			Name:    "initial_schema",
			SQL: `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				workspace_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				icon VARCHAR(255) NOT NULL DEFAULT '',
				color VARCHAR(64) NOT NULL DEFAULT '',
				trigger JSONB NOT NULL DEFAULT '{}',
				active BOOLEAN NOT NULL DEFAULT true,
				version INTEGER NOT NULL DEFAULT 1,
				created_by VARCHAR(255) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_workspace_id ON workflows(workspace_id);
			CREATE INDEX idx_workflows_trigger_event ON workflows((trigger->>'event'));

			CREATE TABLE workflow_steps (
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				kind VARCHAR(50) NOT NULL CHECK (kind IN ('action', 'condition', 'loop', 'delay', 'webhook', 'notification')),
				config JSONB NOT NULL DEFAULT '{}',
				position INTEGER NOT NULL DEFAULT 0,
				parent_id VARCHAR(255),
				next_step_id VARCHAR(255),
				PRIMARY KEY (workflow_id, id)
			);

			CREATE TABLE executions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				status VARCHAR(50) NOT NULL CHECK (status IN ('running', 'completed', 'failed', 'cancelled')),
				input JSONB,
				output JSONB,
				logs JSONB NOT NULL DEFAULT '[]',
				error TEXT NOT NULL DEFAULT '',
				triggered_by VARCHAR(255) NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_executions_workflow_id ON executions(workflow_id, started_at DESC);

			CREATE TABLE webhook_triggers (
				id VARCHAR(255) PRIMARY KEY,
				workspace_id VARCHAR(255) NOT NULL,
				workflow_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				url VARCHAR(255) NOT NULL UNIQUE,
				secret VARCHAR(255) NOT NULL,
				active BOOLEAN NOT NULL DEFAULT true,
				json_schema JSONB,
				last_triggered TIMESTAMP WITH TIME ZONE,
				trigger_count BIGINT NOT NULL DEFAULT 0,
				created_by VARCHAR(255) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_webhook_triggers_workspace_id ON webhook_triggers(workspace_id);

			CREATE TABLE tasks (
				id VARCHAR(255) PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL,
				priority VARCHAR(50) NOT NULL,
				project_id VARCHAR(255) NOT NULL DEFAULT '',
				assignee_id VARCHAR(255) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE TABLE notifications (
				id VARCHAR(255) PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL,
				title VARCHAR(255) NOT NULL,
				message TEXT NOT NULL,
				read BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_notifications_user_id ON notifications(user_id, created_at);
		`,
		},
	}
}
