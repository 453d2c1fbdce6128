package postgresql

import "github.com/dukex/soarflow/pkg/persistence/sqlbase"

var schema = []sqlbase.Migration{
	{
		Version: 1,
		Statements: `
			CREATE TABLE execution_runs (
				id VARCHAR(64) PRIMARY KEY,
				playbook VARCHAR(255) NOT NULL,
				trigger VARCHAR(255),
				status VARCHAR(20) NOT NULL CHECK (status IN ('running', 'success', 'failed')),
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				finished_at TIMESTAMP WITH TIME ZONE,
				duration DOUBLE PRECISION
			);

			CREATE INDEX idx_execution_runs_started_at ON execution_runs(started_at DESC);
			CREATE INDEX idx_execution_runs_trigger ON execution_runs(trigger);

			CREATE TABLE execution_logs (
				id BIGSERIAL PRIMARY KEY,
				run_id VARCHAR(64) NOT NULL REFERENCES execution_runs(id) ON DELETE CASCADE,
				level VARCHAR(10) NOT NULL,
				message TEXT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_execution_logs_run_id ON execution_logs(run_id, id);
		`,
	},
}
